package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPartial InstallmentStatus = "PARTIAL"
	InstallmentPaid    InstallmentStatus = "PAID"

	// InstallmentOverdue is derived at read time over PENDING rows whose due
	// date has passed. It is never written to storage.
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

// Installment is one row per (course registration, month number). Status moves
// PENDING -> PARTIAL -> PAID and never reverses; PaymentDate is set only on
// reaching PAID.
type Installment struct {
	ID             int64
	RegistrationID int64
	CourseID       int64
	CourseName     string
	MonthNumber    int
	MonthName      string
	DueDate        time.Time
	Amount         decimal.Decimal
	PaidAmount     decimal.Decimal
	Status         InstallmentStatus
	PaymentDate    *time.Time
}
