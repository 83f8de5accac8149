// Package httpapi wires the HTTP surface: middleware chain, public health
// and metrics endpoints, the authenticated attendance routes and the
// admin-gated management routes.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"geoasistencia/internal/assignment"
	"geoasistencia/internal/attendance"
	"geoasistencia/internal/audit"
	"geoasistencia/internal/geofence"
	"geoasistencia/internal/platform/metrics"
	"geoasistencia/internal/profile"
	"geoasistencia/internal/transport/http/shared"
	adminmw "geoasistencia/pkg/platform/middleware/admin"
	authmw "geoasistencia/pkg/platform/middleware/auth"
	"geoasistencia/pkg/platform/middleware/logging"
	"geoasistencia/pkg/platform/middleware/metadata"
	"geoasistencia/pkg/platform/middleware/recovery"
	"geoasistencia/pkg/platform/middleware/request"
	"geoasistencia/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts. All fields are required except
// Metrics, which may be nil in tests.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator authmw.JWTValidator

	Attendance  *attendance.Handler
	Assignments *assignment.Handler
	Geofences   *geofence.Handler
	Profiles    *profile.Handler
	Audit       *audit.Handler
}

// NewRouter builds the chi router with the full middleware chain.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(recovery.Middleware(d.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(logging.AccessLog(d.Logger))
	r.Use(observe(d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Validator, d.Logger))

		d.Attendance.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdmin(d.Logger))

			d.Assignments.Register(r)
			d.Geofences.Register(r)
			d.Profiles.Register(r)
			d.Audit.Register(r)
		})
	})

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// observe records per-route request latency, labeled by the chi route
// pattern rather than the raw path to keep cardinality bounded.
func observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, strconv.Itoa(rec.status), time.Since(start).Seconds())
		})
	}
}
