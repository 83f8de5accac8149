package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Requests are small JSON bodies from mobile
// clients on flaky networks, so the read and write timeouts stay short.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
