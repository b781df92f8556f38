package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"course-ledger/internal/domain"
	"course-ledger/internal/metrics"
	"course-ledger/internal/repository"
)

// amountEpsilon is the tolerance for breakdown-vs-amount comparison.
var amountEpsilon = decimal.NewFromFloat(0.01)

// PaymentLedger is the transactional store the allocator writes through.
type PaymentLedger interface {
	WithinTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error
}

// BreakdownEntry targets a set of installments of one course with a portion
// of the payment amount. The portion is split evenly across the targets.
type BreakdownEntry struct {
	CourseID       int64
	InstallmentIDs []int64
	Amount         decimal.Decimal
}

type PaymentRequest struct {
	RegistrationReceiptNo string
	Amount                decimal.Decimal
	Method                string
	Notes                 string
	Breakdown             []BreakdownEntry
}

type PaymentResult struct {
	PaymentReceiptNo string
	Amount           decimal.Decimal

	// Warnings carries non-fatal findings (skip-ahead months) attached to a
	// payment that still committed.
	Warnings []string
}

type PaymentService struct {
	ledger PaymentLedger
	now    func() time.Time
}

func NewPaymentService(ledger PaymentLedger) *PaymentService {
	return &PaymentService{ledger: ledger, now: time.Now}
}

// ApplyPayment validates and applies one payment against a registration,
// optionally allocated across specific installments. All validation runs
// before the first mutating statement; any error rolls back the whole
// transaction, so callers never observe partial ledger state.
//
// TODO: accept a caller-supplied idempotency key so a retry after a timeout
// cannot double-apply the payment.
func (s *PaymentService) ApplyPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if req.RegistrationReceiptNo == "" {
		return nil, fmt.Errorf("%w: registration receipt number is required", ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}

	result := &PaymentResult{
		PaymentReceiptNo: NewPaymentReceiptNo(s.now()),
		Amount:           req.Amount,
	}

	err := s.ledger.WithinTx(ctx, func(tx repository.LedgerTx) error {
		reg, err := tx.GetRegistrationByReceipt(ctx, req.RegistrationReceiptNo)
		if err != nil {
			return classifyStoreError(err)
		}

		// Overpayment is rejected uniformly, on both paths, regardless of how
		// the registration row was originally created.
		if req.Amount.GreaterThan(reg.DueAmount) {
			return fmt.Errorf("%w: payment %s exceeds due amount %s",
				ErrOverpayment, req.Amount.StringFixed(2), reg.DueAmount.StringFixed(2))
		}

		if len(req.Breakdown) == 0 {
			return s.applyUndifferentiated(ctx, tx, reg, req, result.PaymentReceiptNo)
		}

		warnings, err := s.applyBreakdown(ctx, tx, reg, req, result.PaymentReceiptNo)
		if err != nil {
			return err
		}
		result.Warnings = warnings
		return nil
	})
	if err != nil {
		metrics.PaymentFailures.Inc()
		return nil, err
	}

	metrics.PaymentsRecorded.Inc()
	return result, nil
}

// applyUndifferentiated handles the legacy path: the amount is recorded
// against the registration balance only, with no installment-level effects.
func (s *PaymentService) applyUndifferentiated(ctx context.Context, tx repository.LedgerTx, reg *domain.Registration, req PaymentRequest, receiptNo string) error {
	if _, err := tx.InsertPaymentHistory(ctx, &domain.PaymentHistory{
		RegistrationID: reg.ID,
		Amount:         req.Amount,
		Method:         req.Method,
		Type:           domain.PaymentTypeInstallment,
		ReceiptNo:      receiptNo,
		Notes:          req.Notes,
	}); err != nil {
		return classifyStoreError(err)
	}

	if err := tx.ApplyRegistrationPayment(ctx, reg.ID, req.Amount); err != nil {
		return classifyStoreError(err)
	}
	return nil
}

func (s *PaymentService) applyBreakdown(ctx context.Context, tx repository.LedgerTx, reg *domain.Registration, req PaymentRequest, receiptNo string) ([]string, error) {
	total := decimal.Zero
	for _, entry := range req.Breakdown {
		if len(entry.InstallmentIDs) == 0 {
			return nil, fmt.Errorf("%w: breakdown entry for course %d targets no installments", ErrValidation, entry.CourseID)
		}
		if !entry.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: breakdown entry for course %d has non-positive amount", ErrValidation, entry.CourseID)
		}
		total = total.Add(entry.Amount)
	}
	if total.Sub(req.Amount).Abs().GreaterThan(amountEpsilon) {
		return nil, fmt.Errorf("%w: breakdown total %s doesn't match payment amount %s",
			ErrValidation, total.StringFixed(2), req.Amount.StringFixed(2))
	}

	// Validate every entry before the first write.
	var warnings []string
	targets := make([][]domain.Installment, len(req.Breakdown))
	for i, entry := range req.Breakdown {
		installments, err := tx.ListInstallmentsForCourse(ctx, reg.ID, entry.CourseID, entry.InstallmentIDs)
		if err != nil {
			return nil, classifyStoreError(err)
		}
		if len(installments) != len(entry.InstallmentIDs) {
			return nil, fmt.Errorf("%w: course %d references installments outside this registration",
				ErrInvalidInstallmentRef, entry.CourseID)
		}
		targets[i] = installments

		// Skip-ahead check: earlier unpaid months are a warning, not an
		// error. The payment proceeds, flagged for operator review.
		minMonth := installments[0].MonthNumber
		unpaid, err := tx.ListUnpaidInstallmentsBefore(ctx, reg.ID, entry.CourseID, minMonth)
		if err != nil {
			return nil, classifyStoreError(err)
		}
		if len(unpaid) > 0 {
			names := make([]string, 0, len(unpaid))
			for _, in := range unpaid {
				names = append(names, in.MonthName)
			}
			warnings = append(warnings, fmt.Sprintf("%s has unpaid previous months: %s",
				installments[0].CourseName, strings.Join(names, ", ")))
		}
	}

	historyID, err := tx.InsertPaymentHistory(ctx, &domain.PaymentHistory{
		RegistrationID: reg.ID,
		Amount:         req.Amount,
		Method:         req.Method,
		Type:           domain.PaymentTypeInstallment,
		ReceiptNo:      receiptNo,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}

	for i, entry := range req.Breakdown {
		perInstallment := entry.Amount.DivRound(decimal.NewFromInt(int64(len(entry.InstallmentIDs))), 2)
		for _, in := range targets[i] {
			if err := tx.ApplyInstallmentPayment(ctx, in.ID, perInstallment); err != nil {
				return nil, classifyStoreError(err)
			}
			if err := tx.InsertPaymentMapping(ctx, historyID, in.ID, perInstallment); err != nil {
				return nil, classifyStoreError(err)
			}
		}
	}

	if err := tx.ApplyRegistrationPayment(ctx, reg.ID, req.Amount); err != nil {
		return nil, classifyStoreError(err)
	}
	return warnings, nil
}
