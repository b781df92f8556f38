package rest

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"course-ledger/internal/transport/auth"
)

func (h *Handler) exportLedger(w http.ResponseWriter, r *http.Request) {
	req, err := ValidateExportRequest(r)
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID, err := h.exporter.StartLedgerExport(r.Context(), req.Fields, userID)
	if err != nil {
		log.Printf("[HTTP] startLedgerExport error: %v", err)
		respondServiceError(w, err)
		return
	}

	SuccessAccepted(w, "Export queued", map[string]interface{}{
		"export_id": exportID,
	})
}

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exports, err := h.exporter.GetExports(r.Context(), userID)
	if err != nil {
		log.Printf("[HTTP] listExports error: %v", err)
		ErrorInternal(w, "failed to list exports")
		return
	}

	Success(w, "Exports", map[string]interface{}{
		"exports": exports,
	})
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID := chi.URLParam(r, "export_id")

	status, err := h.exporter.GetExport(r.Context(), exportID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	Success(w, "Export", status)
}
