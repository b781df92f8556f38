package rest

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"course-ledger/internal/domain"
	"course-ledger/internal/service"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type breakdownEntryRequest struct {
	CourseID       int64           `json:"course_id"`
	InstallmentIDs []int64         `json:"installment_ids"`
	Amount         decimal.Decimal `json:"amount"`
}

type paymentRequest struct {
	ReceiptNo string                  `json:"receipt_no"`
	Amount    decimal.Decimal         `json:"payment_amount"`
	Method    string                  `json:"payment_method"`
	Notes     string                  `json:"notes"`
	Breakdown []breakdownEntryRequest `json:"installment_breakdown"`
}

func ValidatePaymentRequest(r *http.Request) (*service.PaymentRequest, error) {
	var raw paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, &ValidationError{Message: "invalid JSON"}
	}

	if strings.TrimSpace(raw.ReceiptNo) == "" {
		return nil, &ValidationError{Field: "receipt_no", Message: "receipt_no is required"}
	}
	if !raw.Amount.IsPositive() {
		return nil, &ValidationError{Field: "payment_amount", Message: "payment_amount must be a positive number"}
	}

	req := &service.PaymentRequest{
		RegistrationReceiptNo: strings.TrimSpace(raw.ReceiptNo),
		Amount:                raw.Amount,
		Method:                defaultString(raw.Method, "Cash"),
		Notes:                 raw.Notes,
	}
	for _, entry := range raw.Breakdown {
		req.Breakdown = append(req.Breakdown, service.BreakdownEntry{
			CourseID:       entry.CourseID,
			InstallmentIDs: entry.InstallmentIDs,
			Amount:         entry.Amount,
		})
	}
	return req, nil
}

type courseSelectionRequest struct {
	CourseID    int64           `json:"course_id"`
	PaymentPlan string          `json:"payment_plan"`
	CourseFee   decimal.Decimal `json:"course_fee"`
}

type registrationRequest struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address"`

	Courses []courseSelectionRequest `json:"courses"`

	TotalAmount    decimal.Decimal `json:"total_amount"`
	AdmissionFees  decimal.Decimal `json:"admission_fees"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	PaymentMethod  string          `json:"payment_method"`
}

func ValidateRegistrationRequest(r *http.Request) (*service.RegistrationRequest, error) {
	var raw registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, &ValidationError{Message: "invalid JSON"}
	}

	if strings.TrimSpace(raw.FullName) == "" {
		return nil, &ValidationError{Field: "full_name", Message: "full_name is required"}
	}
	if strings.TrimSpace(raw.PhoneNumber) == "" {
		return nil, &ValidationError{Field: "phone_number", Message: "phone_number is required"}
	}
	if len(raw.Courses) == 0 {
		return nil, &ValidationError{Field: "courses", Message: "at least one course is required"}
	}
	if raw.TotalAmount.IsNegative() || raw.PaidAmount.IsNegative() || raw.DiscountAmount.IsNegative() {
		return nil, &ValidationError{Field: "total_amount", Message: "amounts must not be negative"}
	}

	req := &service.RegistrationRequest{
		Student: service.StudentDetails{
			FullName:    strings.TrimSpace(raw.FullName),
			PhoneNumber: strings.TrimSpace(raw.PhoneNumber),
			Email:       strings.TrimSpace(raw.Email),
			Address:     raw.Address,
		},
		TotalAmount:    raw.TotalAmount,
		AdmissionFees:  raw.AdmissionFees,
		DiscountAmount: raw.DiscountAmount,
		PaidAmount:     raw.PaidAmount,
		PaymentMethod:  defaultString(raw.PaymentMethod, "Cash"),
	}

	if raw.DateOfBirth != "" {
		dob, err := parseDate(raw.DateOfBirth)
		if err != nil {
			return nil, &ValidationError{Field: "date_of_birth", Message: "date_of_birth must be YYYY-MM-DD"}
		}
		req.Student.DateOfBirth = dob
	}

	for _, c := range raw.Courses {
		plan := domain.PaymentPlan(defaultString(c.PaymentPlan, string(domain.PlanFull)))
		if plan != domain.PlanFull && plan != domain.PlanMonthly {
			return nil, &ValidationError{Field: "payment_plan", Message: "payment_plan must be full or monthly"}
		}
		req.Courses = append(req.Courses, service.CourseSelection{
			CourseID:    c.CourseID,
			PaymentPlan: plan,
			CourseFee:   c.CourseFee,
		})
	}

	return req, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func ValidateLoginRequest(r *http.Request) (*loginRequest, error) {
	var raw loginRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, &ValidationError{Message: "invalid JSON"}
	}
	if raw.Username == "" || raw.Password == "" {
		return nil, &ValidationError{Field: "username", Message: "username and password are required"}
	}
	return &raw, nil
}

type exportRequest struct {
	Fields []string `json:"fields"`
}

func ValidateExportRequest(r *http.Request) (*exportRequest, error) {
	var raw exportRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		// an empty body means default fields
		raw.Fields = nil
	}
	return &raw, nil
}

func parseDate(v string) (*time.Time, error) {
	parsed, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
