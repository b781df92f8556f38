package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPartial   PaymentStatus = "PARTIAL"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

// Registration is one enrollment transaction. Balance fields obey
// due = max(0, total - discount - paid); they are only mutated by the
// payment allocator inside a single transaction.
type Registration struct {
	ID               int64
	ReceiptNo        string
	StudentID        int64
	TotalAmount      decimal.Decimal
	AdmissionFees    decimal.Decimal
	DiscountAmount   decimal.Decimal
	PaidAmount       decimal.Decimal
	DueAmount        decimal.Decimal
	PaymentMethod    string
	PaymentStatus    PaymentStatus
	RegistrationDate time.Time
}

type PaymentPlan string

const (
	PlanFull    PaymentPlan = "full"
	PlanMonthly PaymentPlan = "monthly"
)

// CourseRegistration links a registration to a course with the agreed fee.
// Immutable after creation.
type CourseRegistration struct {
	ID             int64
	RegistrationID int64
	CourseID       int64
	PaymentPlan    PaymentPlan
	CourseFee      decimal.Decimal
}

type Student struct {
	ID          int64
	FullName    string
	PhoneNumber string
	Email       string
	DateOfBirth *time.Time
	Address     string
}
