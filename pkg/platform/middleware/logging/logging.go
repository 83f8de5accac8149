// Package logging provides access-log middleware on top of slog.
package logging

import (
	"log/slog"
	"net/http"
	"time"

	"geoasistencia/pkg/platform/middleware/metadata"
	"geoasistencia/pkg/requestcontext"
)

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// AccessLog logs one line per request with method, path, status, duration
// and the client metadata stamped by the metadata middleware.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			ctx := r.Context()
			logger.InfoContext(ctx, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(ctx),
				"client_ip", metadata.ClientIP(ctx),
				"user_agent", metadata.UserAgent(ctx),
			)
		})
	}
}
