// Package recovery converts handler panics into 500 responses instead of
// killing the connection.
package recovery

import (
	"log/slog"
	"net/http"

	"geoasistencia/pkg/requestcontext"
)

// Middleware recovers from panics, logs them with the request ID, and
// returns a generic internal error body.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "panic recovered",
						"panic", rec,
						"path", r.URL.Path,
						"request_id", requestcontext.RequestID(ctx),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL","message":"internal error"}}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
