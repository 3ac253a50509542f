package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/http/response"
	"github.com/inkshelfapp/inkshelf-server/internal/store"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyUser contextKey = "user"

// requireAuth validates the Bearer token, resolves the account it names,
// and attaches the user to the request context. Downstream handlers never
// run when any step fails.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			response.Unauthorized(w, "No token, authorization denied", s.logger)
			return
		}

		user, err := s.authService.VerifyAccessToken(r.Context(), token)
		if err != nil {
			// A valid token naming a vanished account gets no detail;
			// everything else carries the failure reason.
			if errors.Is(err, store.ErrUserNotFound) {
				response.Unauthorized(w, "Token is not valid", s.logger)
				return
			}
			response.ErrorWithDetail(w, http.StatusUnauthorized, "Token is not valid", err.Error(), s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, user.Sanitized())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header. The
// "Bearer " prefix is stripped when present; any other value passes
// through as-is and fails verification downstream.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return token
	}
	return authHeader
}

// currentUser returns the authenticated user attached by requireAuth.
// Returns nil when the request never passed through the middleware.
func currentUser(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(contextKeyUser).(*domain.User); ok {
		return user
	}
	return nil
}
