package admin

import (
	"log/slog"
	"net/http"

	"geoasistencia/pkg/requestcontext"
)

// RoleAdmin is the role claim value that grants administrative access.
const RoleAdmin = "admin"

// RequireAdmin gates a route on the authenticated profile carrying the admin
// role. Must run after auth.RequireAuth in the chain.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != RoleAdmin {
				logger.WarnContext(ctx, "admin access denied",
					"request_id", requestcontext.RequestID(ctx),
					"profile_id", requestcontext.ProfileID(ctx).String(),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"admin role required"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
