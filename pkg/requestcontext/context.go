// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services consume them. Keeping the package
// free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	profileID := requestcontext.ProfileID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithProfileID(ctx, profileID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "geoasistencia/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	profileIDKey   struct{}
	roleKey        struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyProfileID   = profileIDKey{}
	ContextKeyRole        = roleKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// ProfileID retrieves the authenticated profile ID from the context.
// Returns the zero value (nil UUID) if not set.
func ProfileID(ctx context.Context) id.ProfileID {
	if profileID, ok := ctx.Value(ContextKeyProfileID).(id.ProfileID); ok {
		return profileID
	}
	return id.ProfileID{}
}

// WithProfileID injects a profile ID into the context.
func WithProfileID(ctx context.Context, profileID id.ProfileID) context.Context {
	return context.WithValue(ctx, ContextKeyProfileID, profileID)
}

// Role retrieves the authenticated profile's role claim from the context.
func Role(ctx context.Context) string {
	if role, ok := ctx.Value(ContextKeyRole).(string); ok {
		return role
	}
	return ""
}

// WithRole injects a role claim into the context.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeyRole, role)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts like workers and tests. The attendance
// recorder and the schedule classifier read time exclusively through this, so
// client-supplied timestamps never influence classification.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
