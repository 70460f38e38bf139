package middleware

import (
	"log/slog"
	"net/http"

	"github.com/residoken-wq/mini-shop-app-sub001/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation_id and trace ids in
// the request context. Mount it after RequestLogging and Tracing. Authenticate
// adds the actor to this logger once the session is known.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
