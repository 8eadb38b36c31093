package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/timi/timi-go/internal/model"
	"github.com/timi/timi-go/internal/service"
)

type contextKey string

const userKey contextKey = "user"

// UserResolver maps a bearer token to the user it was issued for.
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

// Authenticate returns middleware that resolves the Bearer token in the Authorization header
// to a user and stores it in the request context.
func Authenticate(resolver UserResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			user, err := resolver.CurrentUser(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrUnauthenticated):
					WriteError(w, http.StatusUnauthorized, service.ErrUnauthenticated.Error())
				case errors.Is(err, service.ErrUserNotFound):
					WriteError(w, http.StatusNotFound, err.Error())
				default:
					logger.Error("resolve current user", "error", err)
					WriteError(w, http.StatusInternalServerError, "internal server error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// WithUser returns a copy of ctx carrying user, as Authenticate does.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
