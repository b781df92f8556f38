package rest

import (
	"errors"
	"net/http"

	"course-ledger/internal/service"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	req, err := ValidateLoginRequest(r)
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	result, err := h.authenticator.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountLocked):
			ErrorLocked(w, err.Error())
		case errors.Is(err, service.ErrAccountDisabled):
			ErrorForbidden(w, err.Error())
		case errors.Is(err, service.ErrInvalidCredentials):
			data := map[string]interface{}{}
			if result != nil {
				data["attempts_remaining"] = result.AttemptsRemaining
			}
			Response(w, "Invalid username or password", data, 401, "error", http.StatusUnauthorized)
		default:
			respondServiceError(w, err)
		}
		return
	}

	Success(w, "Login successful", map[string]interface{}{
		"token":     result.Token,
		"user_id":   result.UserID,
		"username":  result.Username,
		"user_type": result.UserType,
	})
}
