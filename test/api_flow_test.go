// Package test exercises the HTTP surface end to end: real router, real
// middleware chain, real JWT validation, in-memory persistence.
package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"geoasistencia/internal/assignment"
	"geoasistencia/internal/attendance"
	"geoasistencia/internal/audit"
	"geoasistencia/internal/authtoken"
	"geoasistencia/internal/geofence"
	"geoasistencia/internal/presence"
	"geoasistencia/internal/profile"
	"geoasistencia/internal/storage"
	httpapi "geoasistencia/internal/transport/http"
	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/testutil"
)

type env struct {
	router http.Handler
	tokens *authtoken.Service
	admin  profile.Profile
	worker profile.Profile
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))

	profiles := profile.NewInMemoryStore()
	zones := geofence.NewInMemoryStore()
	assignments := assignment.NewInMemoryStore(profiles, zones)
	events := attendance.NewInMemoryStore()
	ledger := audit.NewInMemoryStore(profiles)
	runner := storage.NewMemoryRunner(profiles, zones, assignments, events, ledger)

	auditSvc := audit.NewService(ledger, nil)
	profileSvc := profile.NewService(profiles, auditSvc, runner)
	geofenceSvc := geofence.NewService(zones, assignments, auditSvc, runner)
	assignmentSvc := assignment.NewService(assignments, profiles, zones, auditSvc, runner)
	guard := attendance.NewIdempotencyGuard(nil, time.Minute)
	attendanceSvc := attendance.NewService(profiles, assignments, events, guard, runner, nil, time.UTC, log)

	tokens := authtoken.NewService("test-signing-key", "geoasistencia")

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:      log,
		Validator:   authtoken.NewAdapter(tokens),
		Attendance:  attendance.NewHandler(attendanceSvc, log),
		Assignments: assignment.NewHandler(assignmentSvc, log),
		Geofences:   geofence.NewHandler(geofenceSvc, log),
		Profiles:    profile.NewHandler(profileSvc, log),
		Audit:       audit.NewHandler(auditSvc, log),
	})

	e := &env{router: router, tokens: tokens}
	e.admin = e.seedProfile(t, profiles, "EMP-001", "Admin General", profile.RoleAdmin)
	e.worker = e.seedProfile(t, profiles, "EMP-002", "Maria Soto", profile.RoleUser)
	return e
}

func (e *env) seedProfile(t *testing.T, store *profile.InMemoryStore, code, name string, role profile.Role) profile.Profile {
	t.Helper()
	p := profile.Profile{
		ID:             id.NewProfileID(),
		PersonName:     name,
		EmployeeCode:   code,
		CredentialHash: "$2a$10$hash",
		Role:           role,
		Status:         profile.StatusActive,
		Presence:       presence.Out,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, store.Create(context.Background(), p))
	return p
}

func (e *env) token(t *testing.T, p profile.Profile) string {
	t.Helper()
	token, err := e.tokens.Sign(uuid.UUID(p.ID), string(p.Role), time.Hour)
	require.NoError(t, err)
	return token
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(e.router, req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuthenticationGates(t *testing.T) {
	e := newEnv(t)

	testutil.Given(t, "a request without a token", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/sede", "", nil)
		testutil.Then(t, "the router rejects it", func(t *testing.T) {
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	})

	testutil.Given(t, "a worker token on an admin route", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/sede", e.token(t, e.worker), nil)
		testutil.Then(t, "the admin gate rejects it", func(t *testing.T) {
			require.Equal(t, http.StatusForbidden, rec.Code)
		})
	})

	testutil.Given(t, "an admin token", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/sede", e.token(t, e.admin), nil)
		testutil.Then(t, "the site listing answers", func(t *testing.T) {
			require.Equal(t, http.StatusOK, rec.Code)
		})
	})

	testutil.Given(t, "a garbage token", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/registro/ultimo", "not-a-jwt", nil)
		testutil.Then(t, "validation fails before any handler runs", func(t *testing.T) {
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	})
}

// TestAttendanceFlow walks the whole happy path through the HTTP surface:
// admin provisions a site, a geofence and an assignment, then the worker
// checks in and out from inside the zone.
func TestAttendanceFlow(t *testing.T) {
	e := newEnv(t)
	adminToken := e.token(t, e.admin)
	workerToken := e.token(t, e.worker)

	rec := e.do(t, http.MethodPost, "/sede", adminToken, map[string]any{
		"nombre":    "Planta Norte",
		"direccion": "Av. Principal 123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	siteID := decode(t, rec)["id"].(string)

	rec = e.do(t, http.MethodPost, "/geocerca", adminToken, map[string]any{
		"sede_id":      siteID,
		"nombre":       "Porton Principal",
		"latitud":      -33.45,
		"longitud":     -70.66,
		"radio_metros": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	zoneID := decode(t, rec)["id"].(string)

	rec = e.do(t, http.MethodPost, "/assign/new", adminToken, map[string]any{
		"perfil_id":    e.worker.ID.String(),
		"geocerca_id":  zoneID,
		"hora_entrada": "08:00",
		"hora_salida":  "17:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The typed endpoints take short field names; the unified endpoint below
	// takes the long ones. Both spellings are pinned here on purpose.
	t.Run("check in from inside the zone", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/registro/entrada", workerToken, map[string]any{
			"lat": -33.45,
			"lon": -70.66,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		require.Equal(t, "ENTRADA", body["tipo"])
		require.Equal(t, "IN", body["en_sede"])
		require.Equal(t, "Porton Principal", body["geocerca"])
	})

	t.Run("second check in conflicts", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/registro/entrada", workerToken, map[string]any{
			"lat": -33.45,
			"lon": -70.66,
		})
		testutil.RequireErrorCode(t, rec, http.StatusConflict, "CONFLICT")
	})

	t.Run("check out through the unified endpoint", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/registro/new", workerToken, map[string]any{
			"tipo":     "SALIDA",
			"latitud":  -33.4501,
			"longitud": -70.6601,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OUT", decode(t, rec)["en_sede"])
	})

	t.Run("history shows both events newest first", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/registro/historial?dias=1", workerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		require.EqualValues(t, 2, body["count"])
		data := body["data"].([]any)
		require.Equal(t, "SALIDA", data[0].(map[string]any)["tipo"])
		require.Equal(t, "ENTRADA", data[1].(map[string]any)["tipo"])
	})

	t.Run("the provisioning left an audit trail", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/auditoria", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		require.EqualValues(t, 3, body["count"], "site, zone and assignment creates")
		first := body["data"].([]any)[0].(map[string]any)
		require.Equal(t, "EMP-001", first["codigo_empleado"])
	})
}

func TestRegistrationRejections(t *testing.T) {
	e := newEnv(t)
	adminToken := e.token(t, e.admin)
	workerToken := e.token(t, e.worker)

	rec := e.do(t, http.MethodPost, "/sede", adminToken, map[string]any{"nombre": "Planta Sur"})
	require.Equal(t, http.StatusCreated, rec.Code)
	siteID := decode(t, rec)["id"].(string)

	rec = e.do(t, http.MethodPost, "/geocerca", adminToken, map[string]any{
		"sede_id":      siteID,
		"nombre":       "Bodega",
		"latitud":      -33.45,
		"longitud":     -70.66,
		"radio_metros": 50,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	zoneID := decode(t, rec)["id"].(string)

	t.Run("no assignment means no valid zone", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/registro/entrada", workerToken, map[string]any{
			"lat": -33.45,
			"lon": -70.66,
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	rec = e.do(t, http.MethodPost, "/assign/new", adminToken, map[string]any{
		"perfil_id":    e.worker.ID.String(),
		"geocerca_id":  zoneID,
		"hora_entrada": "08:00",
		"hora_salida":  "17:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("a kilometer away is outside the fence", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/registro/entrada", workerToken, map[string]any{
			"lat": -33.44,
			"lon": -70.66,
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("coordinates outside WGS84 are invalid input", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/registro/entrada", workerToken, map[string]any{
			"lat": 120.0,
			"lon": -70.66,
		})
		testutil.RequireErrorCode(t, rec, http.StatusBadRequest, "INVALID_INPUT")
	})

	t.Run("a suspended worker may not register", func(t *testing.T) {
		rec := e.do(t, http.MethodPatch, "/perfil/"+e.worker.ID.String()+"/estado", adminToken,
			map[string]any{"estado": "SUSPENDED"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = e.do(t, http.MethodPost, "/registro/entrada", workerToken, map[string]any{
			"lat": -33.45,
			"lon": -70.66,
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}
