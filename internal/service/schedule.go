package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"course-ledger/internal/domain"
)

// GenerateSchedule produces the monthly installment rows for one course
// registration: equal division of the course fee, due dates one calendar
// month apart starting at startDate, all PENDING. The rounding remainder is
// not folded into the last installment; totals are reconciled at the
// registration level, not per installment.
//
// Callers must invoke this at most once per course registration; re-running
// it would create a duplicate schedule. The surrounding registration
// transaction guarantees that, not this function.
func GenerateSchedule(courseFee decimal.Decimal, installmentCount int, startDate time.Time) ([]domain.Installment, error) {
	if installmentCount < 1 {
		return nil, fmt.Errorf("%w: installment count must be at least 1", ErrValidation)
	}

	amount := courseFee.DivRound(decimal.NewFromInt(int64(installmentCount)), 2)

	out := make([]domain.Installment, 0, installmentCount)
	for n := 1; n <= installmentCount; n++ {
		out = append(out, domain.Installment{
			MonthNumber: n,
			MonthName:   fmt.Sprintf("Month %d", n),
			DueDate:     startDate.AddDate(0, n-1, 0),
			Amount:      amount,
			Status:      domain.InstallmentPending,
		})
	}
	return out, nil
}
