package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hongminglow/message-bus/internal/auth"
	"github.com/hongminglow/message-bus/internal/http/respond"
	"github.com/hongminglow/message-bus/internal/models"
	"github.com/hongminglow/message-bus/internal/storage"
)

type callerKey struct{}

// CallerFromContext returns the authenticated user attached by Authenticate.
func CallerFromContext(ctx context.Context) (models.User, bool) {
	caller, ok := ctx.Value(callerKey{}).(models.User)
	return caller, ok
}

// Authenticate rejects requests that do not carry a valid bearer token
// resolving to an active account, and attaches the account to the request
// context for handlers.
func Authenticate(tokens *auth.TokenManager, users storage.UserStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			respond.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}

		claims, err := tokens.Decode(token)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		id, ok := claims.Identity()
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		caller, err := users.FindUserByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			slog.Error("authenticate: user lookup failed", "user_id", id, "error", err)
			respond.Error(w, http.StatusInternalServerError, "Could not verify credentials")
			return
		}
		if !caller.IsActive {
			respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
