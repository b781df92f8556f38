package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createRegistration(w http.ResponseWriter, r *http.Request) {
	req, err := ValidateRegistrationRequest(r)
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	receipt, err := h.registrations.Create(r.Context(), *req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	SuccessCreated(w, "Registration created successfully", map[string]interface{}{
		"receipt_no":      receipt.ReceiptNo,
		"registration_id": receipt.RegistrationID,
	})
}

func (h *Handler) listRegistrations(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	summaries, pagination, err := h.registrations.List(r.Context(), page, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	rows := make([]map[string]interface{}, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, map[string]interface{}{
			"receipt_no":        s.ReceiptNo,
			"full_name":         s.FullName,
			"phone_number":      s.PhoneNumber,
			"email":             s.Email,
			"total_amount":      s.TotalAmount,
			"admission_fees":    s.AdmissionFees,
			"discount_amount":   s.DiscountAmount,
			"paid_amount":       s.PaidAmount,
			"due_amount":        s.DueAmount,
			"payment_status":    s.PaymentStatus,
			"overdue_months":    s.OverdueMonths,
			"registration_date": s.RegistrationDate,
		})
	}

	Success(w, "Registrations", map[string]interface{}{
		"registrations": rows,
		"pagination":    pagination,
	})
}

func (h *Handler) getRegistration(w http.ResponseWriter, r *http.Request) {
	receiptNo := chi.URLParam(r, "receipt_no")

	reg, err := h.reconciler.Registration(r.Context(), receiptNo)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	courses, err := h.reconciler.InstallmentStatus(r.Context(), receiptNo)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	Success(w, "Registration", map[string]interface{}{
		"receipt_no":        reg.ReceiptNo,
		"total_amount":      reg.TotalAmount,
		"admission_fees":    reg.AdmissionFees,
		"discount_amount":   reg.DiscountAmount,
		"paid_amount":       reg.PaidAmount,
		"due_amount":        reg.DueAmount,
		"payment_method":    reg.PaymentMethod,
		"payment_status":    reg.PaymentStatus,
		"registration_date": reg.RegistrationDate,
		"courses":           courses,
	})
}

func (h *Handler) cancelRegistration(w http.ResponseWriter, r *http.Request) {
	receiptNo := chi.URLParam(r, "receipt_no")

	result, err := h.registrations.Cancel(r.Context(), receiptNo)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	Success(w, "Registration cancelled", map[string]interface{}{
		"receipt_no":      result.ReceiptNo,
		"deleted_student": result.DeletedStudent,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
