// Package metadata stamps client network metadata onto the request context
// so the access log can attribute each attendance submission to an origin.
package metadata

import (
	"context"
	"net/http"
	"strings"
)

type clientIPKey struct{}
type userAgentKey struct{}

// ClientMetadata resolves the caller's IP and User-Agent and rides them on
// the context. Mounted before the access log so every line carries them.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = context.WithValue(ctx, clientIPKey{}, resolveClientIP(r))
		ctx = context.WithValue(ctx, userAgentKey{}, r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the resolved client IP, or "" outside the middleware.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// UserAgent returns the caller's User-Agent, or "" outside the middleware.
func UserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentKey{}).(string)
	return ua
}

// WithClientMetadata injects both values for tests that skip the HTTP chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// resolveClientIP prefers proxy headers over the socket address. Check-ins
// arrive through the mobile app behind a load balancer, so RemoteAddr alone
// would attribute every event to the balancer.
func resolveClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry is the originating client.
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	// RemoteAddr is ip:port, IPv6 as [::1]:port.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}
