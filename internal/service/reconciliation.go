package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"course-ledger/internal/domain"
)

// ReconciliationStore is the read side of the ledger. Nothing here mutates.
type ReconciliationStore interface {
	GetRegistrationByReceipt(ctx context.Context, receiptNo string) (*domain.Registration, error)
	ListInstallmentsByReceipt(ctx context.Context, receiptNo string) ([]domain.Installment, error)
	ListPaymentHistoryByReceipt(ctx context.Context, receiptNo string) ([]domain.PaymentHistory, error)
}

// InstallmentView is an installment with its effective status: OVERDUE is
// derived here on every read, never persisted.
type InstallmentView struct {
	ID          int64                    `json:"id"`
	MonthNumber int                      `json:"month_number"`
	MonthName   string                   `json:"month_name"`
	DueDate     time.Time                `json:"due_date"`
	Amount      decimal.Decimal          `json:"installment_amount"`
	PaidAmount  decimal.Decimal          `json:"paid_amount"`
	Status      domain.InstallmentStatus `json:"current_status"`
	PaymentDate *time.Time               `json:"payment_date,omitempty"`
	DaysOverdue int                      `json:"days_overdue"`
}

type CourseInstallments struct {
	CourseID     int64             `json:"course_id"`
	CourseName   string            `json:"course_name"`
	Installments []InstallmentView `json:"installments"`
}

type ReconciliationService struct {
	store ReconciliationStore
	now   func() time.Time
}

func NewReconciliationService(store ReconciliationStore) *ReconciliationService {
	return &ReconciliationService{store: store, now: time.Now}
}

// InstallmentStatus returns the registration's installments grouped by
// course, month order preserved within each group.
func (s *ReconciliationService) InstallmentStatus(ctx context.Context, receiptNo string) ([]CourseInstallments, error) {
	if _, err := s.store.GetRegistrationByReceipt(ctx, receiptNo); err != nil {
		return nil, classifyStoreError(err)
	}

	installments, err := s.store.ListInstallmentsByReceipt(ctx, receiptNo)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	today := s.now()
	var groups []CourseInstallments
	for _, in := range installments {
		if len(groups) == 0 || groups[len(groups)-1].CourseID != in.CourseID {
			groups = append(groups, CourseInstallments{
				CourseID:   in.CourseID,
				CourseName: in.CourseName,
			})
		}
		g := &groups[len(groups)-1]
		g.Installments = append(g.Installments, effectiveView(in, today))
	}
	return groups, nil
}

// Registration looks up the balance snapshot for one receipt.
func (s *ReconciliationService) Registration(ctx context.Context, receiptNo string) (*domain.Registration, error) {
	reg, err := s.store.GetRegistrationByReceipt(ctx, receiptNo)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return reg, nil
}

func (s *ReconciliationService) PaymentHistory(ctx context.Context, receiptNo string) ([]domain.PaymentHistory, error) {
	if _, err := s.store.GetRegistrationByReceipt(ctx, receiptNo); err != nil {
		return nil, classifyStoreError(err)
	}
	history, err := s.store.ListPaymentHistoryByReceipt(ctx, receiptNo)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return history, nil
}

func effectiveView(in domain.Installment, today time.Time) InstallmentView {
	view := InstallmentView{
		ID:          in.ID,
		MonthNumber: in.MonthNumber,
		MonthName:   in.MonthName,
		DueDate:     in.DueDate,
		Amount:      in.Amount,
		PaidAmount:  in.PaidAmount,
		Status:      in.Status,
		PaymentDate: in.PaymentDate,
	}
	if in.Status == domain.InstallmentPending {
		if days := daysBetween(in.DueDate, today); days > 0 {
			view.Status = domain.InstallmentOverdue
			view.DaysOverdue = days
		}
	}
	return view
}

// daysBetween compares calendar dates, ignoring time of day.
func daysBetween(from, to time.Time) int {
	fromDate := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDate := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDate.Sub(fromDate) / (24 * time.Hour))
}
