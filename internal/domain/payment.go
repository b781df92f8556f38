package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypeInitial     PaymentType = "initial"
	PaymentTypeInstallment PaymentType = "installment"
)

// PaymentHistory is an append-only audit record of a single payment event.
// Rows are removed only by a full registration cancellation.
type PaymentHistory struct {
	ID             int64
	RegistrationID int64
	Amount         decimal.Decimal
	Method         string
	Type           PaymentType
	ReceiptNo      string
	Notes          string
	PaymentDate    time.Time
}

// PaymentMapping records how much of one payment event was applied to one
// installment. A payment split across installments produces one row per
// target; legacy payments with no breakdown produce none.
type PaymentMapping struct {
	ID               int64
	PaymentHistoryID int64
	InstallmentID    int64
	AmountApplied    decimal.Decimal
}
