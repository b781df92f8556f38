package rest

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"course-ledger/internal/service"
	"course-ledger/internal/transport/auth"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidInstallmentRef),
		errors.Is(err, service.ErrOverpayment):
		ErrorBadRequest(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		ErrorNotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		ErrorConflict(w, err.Error())
	default:
		log.Printf("[HTTP] internal error: %v", err)
		ErrorInternal(w, "internal server error")
	}
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	req, err := ValidatePaymentRequest(r)
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	result, err := h.payments.ApplyPayment(r.Context(), *req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if h.notifier != nil {
		if userID, err := auth.GetUserID(r.Context()); err == nil {
			if err := h.notifier.NotifyPaymentRecorded(r.Context(), userID, result.PaymentReceiptNo, result.Warnings); err != nil {
				log.Printf("[HTTP] payment notification error: %v", err)
			}
		}
	}

	data := map[string]interface{}{
		"payment_receipt_no": result.PaymentReceiptNo,
		"payment_amount":     result.Amount,
	}
	if len(result.Warnings) > 0 {
		data["warnings"] = result.Warnings
	}
	Success(w, "Payment recorded successfully", data)
}

func (h *Handler) installmentStatus(w http.ResponseWriter, r *http.Request) {
	receiptNo := chi.URLParam(r, "receipt_no")

	groups, err := h.reconciler.InstallmentStatus(r.Context(), receiptNo)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	Success(w, "Installment status", map[string]interface{}{
		"receipt_no": receiptNo,
		"courses":    groups,
	})
}

func (h *Handler) paymentHistory(w http.ResponseWriter, r *http.Request) {
	receiptNo := chi.URLParam(r, "receipt_no")

	history, err := h.reconciler.PaymentHistory(r.Context(), receiptNo)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	payments := make([]map[string]interface{}, 0, len(history))
	for _, p := range history {
		payments = append(payments, map[string]interface{}{
			"payment_receipt_no": p.ReceiptNo,
			"payment_amount":     p.Amount,
			"payment_method":     p.Method,
			"payment_type":       p.Type,
			"notes":              p.Notes,
			"payment_date":       p.PaymentDate,
		})
	}

	Success(w, "Payment history", map[string]interface{}{
		"receipt_no": receiptNo,
		"payments":   payments,
	})
}
