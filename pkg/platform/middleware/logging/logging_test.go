package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"geoasistencia/pkg/platform/middleware/metadata"
)

func TestAccessLogCarriesClientMetadata(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := metadata.ClientMetadata(AccessLog(logger)(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})))

	req := httptest.NewRequest(http.MethodPost, "/sede", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "geoasistencia-mobile/2.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "http request", line["msg"])
	require.Equal(t, http.MethodPost, line["method"])
	require.Equal(t, "/sede", line["path"])
	require.EqualValues(t, http.StatusCreated, line["status"])
	require.Equal(t, "203.0.113.9", line["client_ip"])
	require.Equal(t, "geoasistencia-mobile/2.1", line["user_agent"])
}
