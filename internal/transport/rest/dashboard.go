package rest

import "net/http"

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	Success(w, "Dashboard stats", stats)
}
