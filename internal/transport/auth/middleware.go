package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"course-ledger/internal/domain"
	"course-ledger/internal/repository"
	"course-ledger/internal/service"
)

type ctxKey string

const UserIDKey ctxKey = "userID"

// TokenMiddleware authenticates requests by bearer token. The token may come
// from the Authorization header or, for websocket handshakes, from a ?token=
// query parameter.
func TokenMiddleware(users *repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tok *domain.AccessToken

			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				plain := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
				if plain != "" {
					if t, err := users.FindTokenByHash(r.Context(), service.HashToken(plain)); err == nil {
						tok = t
					}
				}
			}

			if tok == nil {
				if plain := r.URL.Query().Get("token"); plain != "" {
					if t, err := users.FindTokenByHash(r.Context(), service.HashToken(plain)); err == nil {
						tok = t
					}
				}
			}

			if tok == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if tok.ExpiresAt != nil && tok.ExpiresAt.Before(time.Now()) {
				http.Error(w, "Token expired", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, tok.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	if !ok {
		return 0, errors.New("userID not found in context")
	}
	return userID, nil
}
