package service

import (
	"github.com/shopspring/decimal"

	"course-ledger/internal/domain"
)

// RecomputeBalance derives the due amount and payment status from a
// registration's totals: due = max(0, total - discount - paid). The SQL
// increment updates in the ledger store express the same rule; this pure form
// backs validation and the in-memory test store.
func RecomputeBalance(total, discount, paid decimal.Decimal) (decimal.Decimal, domain.PaymentStatus) {
	due := total.Sub(discount).Sub(paid)
	if due.IsNegative() {
		due = decimal.Zero
	}

	switch {
	case due.IsZero():
		return due, domain.PaymentStatusCompleted
	case paid.IsPositive():
		return due, domain.PaymentStatusPartial
	default:
		return due, domain.PaymentStatusPending
	}
}
