package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"course-ledger/internal/domain"
	"course-ledger/internal/metrics"
	"course-ledger/internal/repository"
)

// defaultInstallmentCount is used when the catalog has no configured count
// for a monthly-plan course.
const defaultInstallmentCount = 12

type RegistrationLedger interface {
	WithinTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error
	ListRegistrations(ctx context.Context, limit, offset int) ([]repository.RegistrationSummary, error)
	CountRegistrations(ctx context.Context) (int64, error)
}

// CourseCatalog supplies the configured installment count, read once at
// registration time. The catalog itself is owned elsewhere.
type CourseCatalog interface {
	GetByID(ctx context.Context, id int64) (*domain.Course, error)
}

type CourseSelection struct {
	CourseID    int64
	PaymentPlan domain.PaymentPlan
	CourseFee   decimal.Decimal
}

type StudentDetails struct {
	FullName    string
	PhoneNumber string
	Email       string
	DateOfBirth *time.Time
	Address     string
}

type RegistrationRequest struct {
	Student        StudentDetails
	Courses        []CourseSelection
	TotalAmount    decimal.Decimal
	AdmissionFees  decimal.Decimal
	DiscountAmount decimal.Decimal
	PaidAmount     decimal.Decimal
	PaymentMethod  string
}

type RegistrationReceipt struct {
	ReceiptNo      string
	RegistrationID int64
}

type CancellationResult struct {
	ReceiptNo      string
	DeletedStudent bool
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalRecords int64 `json:"totalRecords"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

type RegistrationService struct {
	ledger  RegistrationLedger
	catalog CourseCatalog
	now     func() time.Time
}

func NewRegistrationService(ledger RegistrationLedger, catalog CourseCatalog) *RegistrationService {
	return &RegistrationService{ledger: ledger, catalog: catalog, now: time.Now}
}

// Create registers a student for one or more courses in a single
// transaction: student upsert by phone, registration row, course
// registrations, installment schedules for monthly plans and, when an
// initial payment was made, its history row.
func (s *RegistrationService) Create(ctx context.Context, req RegistrationRequest) (*RegistrationReceipt, error) {
	if req.Student.FullName == "" || req.Student.PhoneNumber == "" {
		return nil, fmt.Errorf("%w: student name and phone number are required", ErrValidation)
	}
	if len(req.Courses) == 0 {
		return nil, fmt.Errorf("%w: at least one course is required", ErrValidation)
	}
	if req.PaidAmount.IsNegative() || req.TotalAmount.IsNegative() || req.DiscountAmount.IsNegative() {
		return nil, fmt.Errorf("%w: amounts must not be negative", ErrValidation)
	}

	now := s.now()
	receiptNo := NewRegistrationReceiptNo(now)
	due, status := RecomputeBalance(req.TotalAmount, req.DiscountAmount, req.PaidAmount)

	receipt := &RegistrationReceipt{ReceiptNo: receiptNo}

	err := s.ledger.WithinTx(ctx, func(tx repository.LedgerTx) error {
		studentID, err := tx.UpsertStudent(ctx, &domain.Student{
			FullName:    req.Student.FullName,
			PhoneNumber: req.Student.PhoneNumber,
			Email:       req.Student.Email,
			DateOfBirth: req.Student.DateOfBirth,
			Address:     req.Student.Address,
		})
		if err != nil {
			return classifyStoreError(err)
		}

		regID, err := tx.InsertRegistration(ctx, &domain.Registration{
			ReceiptNo:      receiptNo,
			StudentID:      studentID,
			TotalAmount:    req.TotalAmount,
			AdmissionFees:  req.AdmissionFees,
			DiscountAmount: req.DiscountAmount,
			PaidAmount:     req.PaidAmount,
			DueAmount:      due,
			PaymentMethod:  req.PaymentMethod,
			PaymentStatus:  status,
		})
		if err != nil {
			return classifyStoreError(err)
		}
		receipt.RegistrationID = regID

		for _, sel := range req.Courses {
			if err := tx.InsertCourseRegistration(ctx, &domain.CourseRegistration{
				RegistrationID: regID,
				CourseID:       sel.CourseID,
				PaymentPlan:    sel.PaymentPlan,
				CourseFee:      sel.CourseFee,
			}); err != nil {
				return classifyStoreError(err)
			}

			if sel.PaymentPlan != domain.PlanMonthly {
				continue
			}

			course, err := s.catalog.GetByID(ctx, sel.CourseID)
			if err != nil {
				return classifyStoreError(err)
			}
			count := course.MonthlyInstallments
			if count < 1 {
				count = defaultInstallmentCount
			}

			schedule, err := GenerateSchedule(sel.CourseFee, count, now)
			if err != nil {
				return err
			}
			for i := range schedule {
				schedule[i].RegistrationID = regID
				schedule[i].CourseID = sel.CourseID
			}
			if err := tx.InsertInstallments(ctx, schedule); err != nil {
				return classifyStoreError(err)
			}
		}

		if req.PaidAmount.IsPositive() {
			if _, err := tx.InsertPaymentHistory(ctx, &domain.PaymentHistory{
				RegistrationID: regID,
				Amount:         req.PaidAmount,
				Method:         req.PaymentMethod,
				Type:           domain.PaymentTypeInitial,
				ReceiptNo:      receiptNo,
				Notes:          "Initial payment during registration",
			}); err != nil {
				return classifyStoreError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RegistrationsCreated.Inc()
	return receipt, nil
}

// Cancel removes a registration and everything hanging off it, in foreign-key
// dependency order, inside one transaction. When the owning student has no
// other registrations left, the student row goes too.
func (s *RegistrationService) Cancel(ctx context.Context, receiptNo string) (*CancellationResult, error) {
	if receiptNo == "" {
		return nil, fmt.Errorf("%w: receipt number is required", ErrValidation)
	}

	result := &CancellationResult{ReceiptNo: receiptNo}

	err := s.ledger.WithinTx(ctx, func(tx repository.LedgerTx) error {
		reg, err := tx.GetRegistrationByReceipt(ctx, receiptNo)
		if err != nil {
			return classifyStoreError(err)
		}

		if err := tx.DeletePaymentMappings(ctx, reg.ID); err != nil {
			return classifyStoreError(err)
		}
		if err := tx.DeletePaymentHistory(ctx, reg.ID); err != nil {
			return classifyStoreError(err)
		}
		if err := tx.DeleteCourseRegistrations(ctx, reg.ID); err != nil {
			return classifyStoreError(err)
		}
		if err := tx.DeleteInstallments(ctx, reg.ID); err != nil {
			return classifyStoreError(err)
		}
		if err := tx.DeleteRegistration(ctx, reg.ID); err != nil {
			return classifyStoreError(err)
		}

		remaining, err := tx.CountStudentRegistrations(ctx, reg.StudentID)
		if err != nil {
			return classifyStoreError(err)
		}
		if remaining == 0 {
			if err := tx.DeleteStudent(ctx, reg.StudentID); err != nil {
				return classifyStoreError(err)
			}
			result.DeletedStudent = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RegistrationsCancelled.Inc()
	return result, nil
}

func (s *RegistrationService) List(ctx context.Context, page, limit int) ([]repository.RegistrationSummary, *Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	rows, err := s.ledger.ListRegistrations(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, nil, classifyStoreError(err)
	}
	total, err := s.ledger.CountRegistrations(ctx)
	if err != nil {
		return nil, nil, classifyStoreError(err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return rows, &Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalRecords: total,
		HasNext:      page < totalPages,
		HasPrev:      page > 1,
	}, nil
}
