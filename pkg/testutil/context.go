package testutil

import (
	"net/http"
	"time"

	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/requestcontext"
)

// WithProfileID adds a profile ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the profileID is not a valid UUID, it will not be added to the context.
func WithProfileID(req *http.Request, profileID string) *http.Request {
	if parsed, err := id.ParseProfileID(profileID); err == nil {
		return req.WithContext(requestcontext.WithProfileID(req.Context(), parsed))
	}
	return req
}

// WithRole adds a role claim to the request context.
func WithRole(req *http.Request, role string) *http.Request {
	return req.WithContext(requestcontext.WithRole(req.Context(), role))
}

// WithAuth adds both profile ID and role to the request context.
// This is the typical state for an authenticated request.
// An invalid profile ID is silently ignored.
func WithAuth(req *http.Request, profileID, role string) *http.Request {
	req = WithProfileID(req, profileID)
	if role != "" {
		req = WithRole(req, role)
	}
	return req
}

// WithRequestTime pins the server clock seen by handlers under test.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
