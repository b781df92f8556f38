package rest

import "net/http"

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListActive(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	rows := make([]map[string]interface{}, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, map[string]interface{}{
			"id":                   c.ID,
			"name":                 c.Name,
			"duration":             c.Duration,
			"fee":                  c.Fee,
			"monthly_installments": c.MonthlyInstallments,
		})
	}

	Success(w, "Courses", map[string]interface{}{
		"courses": rows,
	})
}
