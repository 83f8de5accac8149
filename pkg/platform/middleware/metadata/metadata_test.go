package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientMetadataStampsContext(t *testing.T) {
	var gotIP, gotUA string
	handler := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotIP = ClientIP(r.Context())
		gotUA = UserAgent(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/registro/entrada", nil)
	req.RemoteAddr = "10.1.2.3:52100"
	req.Header.Set("User-Agent", "geoasistencia-mobile/2.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "10.1.2.3", gotIP)
	require.Equal(t, "geoasistencia-mobile/2.1", gotUA)
}

func TestResolveClientIPPrecedence(t *testing.T) {
	cases := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded_for_wins", "203.0.113.9, 10.0.0.1", "10.0.0.2", "10.0.0.3:80", "203.0.113.9"},
		{"single_forwarded_for", "203.0.113.9", "", "10.0.0.3:80", "203.0.113.9"},
		{"real_ip_before_socket", "", "203.0.113.10", "10.0.0.3:80", "203.0.113.10"},
		{"socket_ipv4", "", "", "192.168.1.20:41000", "192.168.1.20"},
		{"socket_ipv6", "", "", "[::1]:41000", "[::1]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			require.Equal(t, tc.want, resolveClientIP(req))
		})
	}
}

func TestAccessorsOutsideMiddleware(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, ClientIP(ctx))
	require.Empty(t, UserAgent(ctx))

	ctx = WithClientMetadata(ctx, "198.51.100.4", "curl/8.0")
	require.Equal(t, "198.51.100.4", ClientIP(ctx))
	require.Equal(t, "curl/8.0", UserAgent(ctx))
}
