package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"course-ledger/internal/domain"
	"course-ledger/internal/repository"
)

// fakeLedger is an in-memory stand-in for the postgres store. It mirrors the
// semantics of the SQL increment updates so service tests can assert on the
// resulting ledger state, and WithinTx restores the previous state on error
// the way a rolled-back transaction would. Transactions run one at a time
// under mu, matching the row lock the real store takes when it reads a
// registration inside a transaction.
type fakeLedger struct {
	mu sync.Mutex

	students     []domain.Student
	regs         []domain.Registration
	courseRegs   []domain.CourseRegistration
	installments []domain.Installment
	history      []domain.PaymentHistory
	mappings     []domain.PaymentMapping

	nextID int64
	today  time.Time
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		today: time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeLedger) id() int64 {
	f.nextID++
	return f.nextID
}

type ledgerSnapshot struct {
	students     []domain.Student
	regs         []domain.Registration
	courseRegs   []domain.CourseRegistration
	installments []domain.Installment
	history      []domain.PaymentHistory
	mappings     []domain.PaymentMapping
	nextID       int64
}

func (f *fakeLedger) snapshot() ledgerSnapshot {
	return ledgerSnapshot{
		students:     append([]domain.Student(nil), f.students...),
		regs:         append([]domain.Registration(nil), f.regs...),
		courseRegs:   append([]domain.CourseRegistration(nil), f.courseRegs...),
		installments: append([]domain.Installment(nil), f.installments...),
		history:      append([]domain.PaymentHistory(nil), f.history...),
		mappings:     append([]domain.PaymentMapping(nil), f.mappings...),
		nextID:       f.nextID,
	}
}

func (f *fakeLedger) restore(s ledgerSnapshot) {
	f.students = s.students
	f.regs = s.regs
	f.courseRegs = s.courseRegs
	f.installments = s.installments
	f.history = s.history
	f.mappings = s.mappings
	f.nextID = s.nextID
}

func (f *fakeLedger) WithinTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

// seedRegistration inserts a student plus registration and returns the
// registration. Balance fields follow due = max(0, total - discount - paid).
func (f *fakeLedger) seedRegistration(receiptNo string, total, discount, paid decimal.Decimal) *domain.Registration {
	student := domain.Student{
		ID:          f.id(),
		FullName:    "Test Student",
		PhoneNumber: "9999999999",
	}
	f.students = append(f.students, student)

	due, status := RecomputeBalance(total, discount, paid)
	reg := domain.Registration{
		ID:               f.id(),
		ReceiptNo:        receiptNo,
		StudentID:        student.ID,
		TotalAmount:      total,
		DiscountAmount:   discount,
		PaidAmount:       paid,
		DueAmount:        due,
		PaymentMethod:    "Cash",
		PaymentStatus:    status,
		RegistrationDate: f.today,
	}
	f.regs = append(f.regs, reg)
	return &f.regs[len(f.regs)-1]
}

func (f *fakeLedger) seedInstallment(regID, courseID int64, courseName string, month int, amount decimal.Decimal, dueDate time.Time) *domain.Installment {
	in := domain.Installment{
		ID:             f.id(),
		RegistrationID: regID,
		CourseID:       courseID,
		CourseName:     courseName,
		MonthNumber:    month,
		MonthName:      monthName(month),
		DueDate:        dueDate,
		Amount:         amount,
		PaidAmount:     decimal.Zero,
		Status:         domain.InstallmentPending,
	}
	f.installments = append(f.installments, in)
	return &f.installments[len(f.installments)-1]
}

func monthName(n int) string {
	names := []string{"", "Month 1", "Month 2", "Month 3", "Month 4", "Month 5", "Month 6"}
	if n < len(names) {
		return names[n]
	}
	return "Month X"
}

func (f *fakeLedger) findInstallment(id int64) *domain.Installment {
	for i := range f.installments {
		if f.installments[i].ID == id {
			return &f.installments[i]
		}
	}
	return nil
}

func (f *fakeLedger) GetRegistrationByReceipt(ctx context.Context, receiptNo string) (*domain.Registration, error) {
	for i := range f.regs {
		if f.regs[i].ReceiptNo == receiptNo {
			reg := f.regs[i]
			return &reg, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedger) GetRegistration(ctx context.Context, id int64) (*domain.Registration, error) {
	for i := range f.regs {
		if f.regs[i].ID == id {
			reg := f.regs[i]
			return &reg, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedger) UpsertStudent(ctx context.Context, s *domain.Student) (int64, error) {
	for i := range f.students {
		if f.students[i].PhoneNumber == s.PhoneNumber {
			id := f.students[i].ID
			updated := *s
			updated.ID = id
			f.students[i] = updated
			return id, nil
		}
	}
	created := *s
	created.ID = f.id()
	f.students = append(f.students, created)
	return created.ID, nil
}

func (f *fakeLedger) InsertRegistration(ctx context.Context, r *domain.Registration) (int64, error) {
	created := *r
	created.ID = f.id()
	created.RegistrationDate = f.today
	f.regs = append(f.regs, created)
	return created.ID, nil
}

func (f *fakeLedger) InsertCourseRegistration(ctx context.Context, cr *domain.CourseRegistration) error {
	created := *cr
	created.ID = f.id()
	f.courseRegs = append(f.courseRegs, created)
	return nil
}

func (f *fakeLedger) InsertInstallments(ctx context.Context, installments []domain.Installment) error {
	for _, in := range installments {
		in.ID = f.id()
		f.installments = append(f.installments, in)
	}
	return nil
}

func (f *fakeLedger) InsertPaymentHistory(ctx context.Context, p *domain.PaymentHistory) (int64, error) {
	created := *p
	created.ID = f.id()
	created.PaymentDate = f.today
	f.history = append(f.history, created)
	return created.ID, nil
}

func (f *fakeLedger) InsertPaymentMapping(ctx context.Context, historyID, installmentID int64, amount decimal.Decimal) error {
	f.mappings = append(f.mappings, domain.PaymentMapping{
		ID:               f.id(),
		PaymentHistoryID: historyID,
		InstallmentID:    installmentID,
		AmountApplied:    amount,
	})
	return nil
}

func (f *fakeLedger) ListInstallmentsForCourse(ctx context.Context, registrationID, courseID int64, ids []int64) ([]domain.Installment, error) {
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var out []domain.Installment
	for _, in := range f.installments {
		if in.RegistrationID == registrationID && in.CourseID == courseID && wanted[in.ID] {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthNumber < out[j].MonthNumber })
	return out, nil
}

func (f *fakeLedger) ListUnpaidInstallmentsBefore(ctx context.Context, registrationID, courseID int64, monthNumber int) ([]domain.Installment, error) {
	var out []domain.Installment
	for _, in := range f.installments {
		if in.RegistrationID == registrationID && in.CourseID == courseID &&
			in.MonthNumber < monthNumber && in.Status == domain.InstallmentPending {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthNumber < out[j].MonthNumber })
	return out, nil
}

func (f *fakeLedger) ApplyInstallmentPayment(ctx context.Context, installmentID int64, delta decimal.Decimal) error {
	in := f.findInstallment(installmentID)
	if in == nil {
		return sql.ErrNoRows
	}
	in.PaidAmount = in.PaidAmount.Add(delta)
	if in.PaidAmount.GreaterThanOrEqual(in.Amount) {
		if in.Status != domain.InstallmentPaid {
			d := f.today
			in.PaymentDate = &d
		}
		in.Status = domain.InstallmentPaid
	} else {
		in.Status = domain.InstallmentPartial
	}
	return nil
}

func (f *fakeLedger) ApplyRegistrationPayment(ctx context.Context, registrationID int64, delta decimal.Decimal) error {
	for i := range f.regs {
		if f.regs[i].ID != registrationID {
			continue
		}
		reg := &f.regs[i]
		reg.PaidAmount = reg.PaidAmount.Add(delta)
		outstanding := reg.TotalAmount.Sub(reg.DiscountAmount).Sub(reg.PaidAmount)
		if outstanding.LessThanOrEqual(decimal.Zero) {
			reg.DueAmount = decimal.Zero
			reg.PaymentStatus = domain.PaymentStatusCompleted
		} else {
			reg.DueAmount = outstanding
			reg.PaymentStatus = domain.PaymentStatusPartial
		}
		return nil
	}
	return sql.ErrNoRows
}

func (f *fakeLedger) DeletePaymentMappings(ctx context.Context, registrationID int64) error {
	histIDs := make(map[int64]bool)
	for _, h := range f.history {
		if h.RegistrationID == registrationID {
			histIDs[h.ID] = true
		}
	}
	var kept []domain.PaymentMapping
	for _, m := range f.mappings {
		if !histIDs[m.PaymentHistoryID] {
			kept = append(kept, m)
		}
	}
	f.mappings = kept
	return nil
}

func (f *fakeLedger) DeletePaymentHistory(ctx context.Context, registrationID int64) error {
	var kept []domain.PaymentHistory
	for _, h := range f.history {
		if h.RegistrationID != registrationID {
			kept = append(kept, h)
		}
	}
	f.history = kept
	return nil
}

func (f *fakeLedger) DeleteCourseRegistrations(ctx context.Context, registrationID int64) error {
	var kept []domain.CourseRegistration
	for _, cr := range f.courseRegs {
		if cr.RegistrationID != registrationID {
			kept = append(kept, cr)
		}
	}
	f.courseRegs = kept
	return nil
}

func (f *fakeLedger) DeleteInstallments(ctx context.Context, registrationID int64) error {
	var kept []domain.Installment
	for _, in := range f.installments {
		if in.RegistrationID != registrationID {
			kept = append(kept, in)
		}
	}
	f.installments = kept
	return nil
}

func (f *fakeLedger) DeleteRegistration(ctx context.Context, registrationID int64) error {
	var kept []domain.Registration
	for _, r := range f.regs {
		if r.ID != registrationID {
			kept = append(kept, r)
		}
	}
	f.regs = kept
	return nil
}

func (f *fakeLedger) CountStudentRegistrations(ctx context.Context, studentID int64) (int64, error) {
	var count int64
	for _, r := range f.regs {
		if r.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (f *fakeLedger) DeleteStudent(ctx context.Context, studentID int64) error {
	var kept []domain.Student
	for _, s := range f.students {
		if s.ID != studentID {
			kept = append(kept, s)
		}
	}
	f.students = kept
	return nil
}

// read-side methods backing RegistrationLedger and ReconciliationStore

func (f *fakeLedger) ListInstallmentsByReceipt(ctx context.Context, receiptNo string) ([]domain.Installment, error) {
	reg, err := f.GetRegistrationByReceipt(ctx, receiptNo)
	if err != nil {
		return nil, err
	}
	var out []domain.Installment
	for _, in := range f.installments {
		if in.RegistrationID == reg.ID {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseName != out[j].CourseName {
			return out[i].CourseName < out[j].CourseName
		}
		if out[i].CourseID != out[j].CourseID {
			return out[i].CourseID < out[j].CourseID
		}
		return out[i].MonthNumber < out[j].MonthNumber
	})
	return out, nil
}

func (f *fakeLedger) ListPaymentHistoryByReceipt(ctx context.Context, receiptNo string) ([]domain.PaymentHistory, error) {
	reg, err := f.GetRegistrationByReceipt(ctx, receiptNo)
	if err != nil {
		return nil, err
	}
	var out []domain.PaymentHistory
	for _, h := range f.history {
		if h.RegistrationID == reg.ID {
			out = append(out, h)
		}
	}
	// newest first, matching the repository ordering
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeLedger) ListRegistrations(ctx context.Context, limit, offset int) ([]repository.RegistrationSummary, error) {
	var out []repository.RegistrationSummary
	for i := offset; i < len(f.regs) && len(out) < limit; i++ {
		r := f.regs[i]
		out = append(out, repository.RegistrationSummary{
			ID:               r.ID,
			ReceiptNo:        r.ReceiptNo,
			TotalAmount:      r.TotalAmount,
			DiscountAmount:   r.DiscountAmount,
			PaidAmount:       r.PaidAmount,
			DueAmount:        r.DueAmount,
			PaymentStatus:    r.PaymentStatus,
			RegistrationDate: r.RegistrationDate,
		})
	}
	return out, nil
}

func (f *fakeLedger) CountRegistrations(ctx context.Context) (int64, error) {
	return int64(len(f.regs)), nil
}

func (f *fakeLedger) ListAllRegistrations(ctx context.Context) ([]repository.RegistrationSummary, error) {
	return f.ListRegistrations(ctx, len(f.regs), 0)
}
