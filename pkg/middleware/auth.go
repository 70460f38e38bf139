package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/residoken-wq/mini-shop-app-sub001/pkg/httputil"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/logger"
)

type contextKeyType string

const principalKey contextKeyType = "principal"

// Principal is the authenticated staff member behind a request.
type Principal struct {
	SessionID string
	UserID    string
	Username  string
	Role      string
}

// SessionResolver turns a session token into a Principal. It returns an error
// for unknown, expired or revoked sessions.
type SessionResolver func(ctx context.Context, token string) (*Principal, error)

// Authenticate reads the session token from cookieName, falling back to an
// "Authorization: Bearer" header, and stores the resolved Principal in the
// request context. Requests without a valid session get 401.
func Authenticate(cookieName string, resolve SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, cookieName)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
				return
			}

			p, err := resolve(r.Context(), token)
			if err != nil || p == nil {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, p)
			ctx = logger.WithActor(ctx, logger.Actor{UserID: p.UserID, Username: p.Username})
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(
				slog.String("user_id", p.UserID),
				slog.String("username", p.Username),
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// RequireRole rejects principals whose role is not in roles with 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
				return
			}
			if _, allowed := roleSet[p.Role]; !allowed {
				writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext returns the principal stored by Authenticate.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// WithPrincipal stores p in ctx. Handlers tests use it to skip Authenticate.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{Code: code, Message: message},
	})
}
