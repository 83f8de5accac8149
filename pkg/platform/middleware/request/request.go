// Package request provides request ID middleware so every log line and audit
// record of one request can be correlated.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"geoasistencia/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

// RequestID assigns a request ID (honoring an inbound X-Request-ID header)
// and stores it in the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
