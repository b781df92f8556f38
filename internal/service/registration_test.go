package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"course-ledger/internal/domain"
)

type fakeCatalog struct {
	courses map[int64]*domain.Course
}

func (c *fakeCatalog) GetByID(ctx context.Context, id int64) (*domain.Course, error) {
	course, ok := c.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

func newRegistrationFixture(t *testing.T) (*RegistrationService, *fakeLedger) {
	t.Helper()

	ledger := newFakeLedger()
	catalog := &fakeCatalog{courses: map[int64]*domain.Course{
		10: {ID: 10, Name: "Mathematics", Fee: dec("12000"), MonthlyInstallments: 3, IsActive: true},
		20: {ID: 20, Name: "Physics", Fee: dec("8000"), MonthlyInstallments: 0, IsActive: true},
	}}

	svc := NewRegistrationService(ledger, catalog)
	svc.now = func() time.Time { return ledger.today }
	return svc, ledger
}

func baseRequest() RegistrationRequest {
	return RegistrationRequest{
		Student: StudentDetails{
			FullName:    "Asha Verma",
			PhoneNumber: "9876543210",
			Email:       "asha@example.com",
		},
		Courses: []CourseSelection{
			{CourseID: 10, PaymentPlan: domain.PlanMonthly, CourseFee: dec("12000")},
		},
		TotalAmount:   dec("12000"),
		PaymentMethod: "Cash",
	}
}

func TestCreate_MonthlyPlanGeneratesSchedule(t *testing.T) {
	svc, ledger := newRegistrationFixture(t)

	receipt, err := svc.Create(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !strings.HasPrefix(receipt.ReceiptNo, "CODE-2026-") {
		t.Errorf("unexpected receipt format: %s", receipt.ReceiptNo)
	}
	if receipt.RegistrationID == 0 {
		t.Error("expected a registration id")
	}

	if len(ledger.installments) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(ledger.installments))
	}
	for i, in := range ledger.installments {
		if in.RegistrationID != receipt.RegistrationID || in.CourseID != 10 {
			t.Errorf("installment %d not linked to registration/course", i)
		}
		if !in.Amount.Equal(dec("4000")) {
			t.Errorf("installment %d: expected amount 4000, got %s", i, in.Amount)
		}
		if in.Status != domain.InstallmentPending {
			t.Errorf("installment %d: expected PENDING, got %s", i, in.Status)
		}
		wantDue := ledger.today.AddDate(0, i, 0)
		if !in.DueDate.Equal(wantDue) {
			t.Errorf("installment %d: expected due %s, got %s", i, wantDue, in.DueDate)
		}
	}

	reg, _ := ledger.GetRegistration(context.Background(), receipt.RegistrationID)
	if reg.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected PENDING with no initial payment, got %s", reg.PaymentStatus)
	}
	if !reg.DueAmount.Equal(dec("12000")) {
		t.Errorf("expected due 12000, got %s", reg.DueAmount)
	}
	if len(ledger.history) != 0 {
		t.Errorf("no initial payment means no history row")
	}
}

func TestCreate_FullPlanSkipsSchedule(t *testing.T) {
	svc, ledger := newRegistrationFixture(t)

	req := baseRequest()
	req.Courses = []CourseSelection{{CourseID: 20, PaymentPlan: domain.PlanFull, CourseFee: dec("8000")}}
	req.TotalAmount = dec("8000")

	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(ledger.installments) != 0 {
		t.Errorf("full plan must not generate installments, got %d", len(ledger.installments))
	}
	if len(ledger.courseRegs) != 1 {
		t.Errorf("expected 1 course registration, got %d", len(ledger.courseRegs))
	}
}

func TestCreate_InitialPaymentRecorded(t *testing.T) {
	svc, ledger := newRegistrationFixture(t)

	req := baseRequest()
	req.PaidAmount = dec("3000")

	receipt, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reg, _ := ledger.GetRegistration(context.Background(), receipt.RegistrationID)
	if reg.PaymentStatus != domain.PaymentStatusPartial {
		t.Errorf("expected PARTIAL, got %s", reg.PaymentStatus)
	}
	if !reg.DueAmount.Equal(dec("9000")) {
		t.Errorf("expected due 9000, got %s", reg.DueAmount)
	}

	if len(ledger.history) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(ledger.history))
	}
	h := ledger.history[0]
	if h.Type != domain.PaymentTypeInitial {
		t.Errorf("expected initial payment type, got %s", h.Type)
	}
	if h.ReceiptNo != receipt.ReceiptNo {
		t.Errorf("initial payment reuses the registration receipt, got %s", h.ReceiptNo)
	}
}

func TestCreate_ExistingStudentReused(t *testing.T) {
	svc, ledger := newRegistrationFixture(t)

	first, err := svc.Create(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(ledger.students) != 1 {
		t.Fatalf("same phone number must reuse the student, got %d students", len(ledger.students))
	}

	reg1, _ := ledger.GetRegistration(context.Background(), first.RegistrationID)
	reg2, _ := ledger.GetRegistration(context.Background(), second.RegistrationID)
	if reg1.StudentID != reg2.StudentID {
		t.Errorf("both registrations must point at the same student")
	}
	if reg1.ReceiptNo == reg2.ReceiptNo {
		t.Errorf("receipt numbers must be unique")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newRegistrationFixture(t)

	cases := []struct {
		name   string
		mutate func(*RegistrationRequest)
	}{
		{"missing name", func(r *RegistrationRequest) { r.Student.FullName = "" }},
		{"missing phone", func(r *RegistrationRequest) { r.Student.PhoneNumber = "" }},
		{"no courses", func(r *RegistrationRequest) { r.Courses = nil }},
		{"negative paid", func(r *RegistrationRequest) { r.PaidAmount = dec("-1") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			tc.mutate(&req)
			if _, err := svc.Create(context.Background(), req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCancel_RemovesEverything(t *testing.T) {
	svc, ledger := newRegistrationFixture(t)

	req := baseRequest()
	req.PaidAmount = dec("3000")
	receipt, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := svc.Cancel(context.Background(), receipt.ReceiptNo)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !result.DeletedStudent {
		t.Errorf("only registration of the student gone, student must be deleted too")
	}

	if len(ledger.regs) != 0 || len(ledger.installments) != 0 ||
		len(ledger.history) != 0 || len(ledger.courseRegs) != 0 || len(ledger.students) != 0 {
		t.Errorf("cancel must remove the registration and everything hanging off it")
	}
}

func TestCancel_KeepsStudentWithOtherRegistrations(t *testing.T) {
	svc, ledger := newRegistrationFixture(t)

	first, err := svc.Create(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(context.Background(), baseRequest()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := svc.Cancel(context.Background(), first.ReceiptNo)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if result.DeletedStudent {
		t.Errorf("student with another registration must survive")
	}
	if len(ledger.students) != 1 {
		t.Errorf("expected student to remain, got %d", len(ledger.students))
	}
	if len(ledger.regs) != 1 {
		t.Errorf("expected 1 registration left, got %d", len(ledger.regs))
	}
}

func TestCancel_UnknownReceipt(t *testing.T) {
	svc, _ := newRegistrationFixture(t)

	if _, err := svc.Cancel(context.Background(), "CODE-0000-nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList_Pagination(t *testing.T) {
	svc, ledger := newRegistrationFixture(t)

	for i := 0; i < 25; i++ {
		ledger.seedRegistration(NewRegistrationReceiptNo(ledger.today), dec("1000"), decimal.Zero, decimal.Zero)
	}

	rows, pagination, err := svc.List(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 10 {
		t.Errorf("expected 10 rows on page 2, got %d", len(rows))
	}
	if pagination.CurrentPage != 2 || pagination.TotalPages != 3 || pagination.TotalRecords != 25 {
		t.Errorf("unexpected pagination: %+v", pagination)
	}
	if !pagination.HasNext || !pagination.HasPrev {
		t.Errorf("page 2 of 3 has both neighbours: %+v", pagination)
	}

	_, last, err := svc.List(context.Background(), 3, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if last.HasNext || !last.HasPrev {
		t.Errorf("unexpected pagination on last page: %+v", last)
	}
}
