//go:build integration

package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"geoasistencia/internal/attendance"
	"geoasistencia/internal/geofence"
	"geoasistencia/internal/presence"
	"geoasistencia/internal/profile"
	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
	"geoasistencia/pkg/testutil/containers"
)

type AttendancePostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *attendance.PostgresStore
	profiles *profile.PostgresStore
	zones    *geofence.PostgresStore

	worker profile.Profile
	zone   geofence.GeoFence
}

func TestAttendancePostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AttendancePostgresSuite))
}

func (s *AttendancePostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = attendance.NewPostgres(s.postgres.DB)
	s.profiles = profile.NewPostgres(s.postgres.DB)
	s.zones = geofence.NewPostgres(s.postgres.DB)
}

func (s *AttendancePostgresSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.Truncate(ctx, "registro_asistencia", "geocerca", "sede", "perfil")
	s.Require().NoError(err)

	s.worker = profile.Profile{
		ID:             id.NewProfileID(),
		PersonName:     "Trabajador",
		EmployeeCode:   "EMP-020",
		CredentialHash: "$2a$10$hash",
		Role:           profile.RoleUser,
		Status:         profile.StatusActive,
		Presence:       presence.Out,
		CreatedAt:      time.Now(),
	}
	s.Require().NoError(s.profiles.Create(ctx, s.worker))

	site := geofence.Site{ID: id.NewSiteID(), Name: "Planta", CreatedAt: time.Now()}
	s.Require().NoError(s.zones.CreateSite(ctx, site))

	s.zone = geofence.GeoFence{
		ID:           id.NewGeofenceID(),
		SiteID:       site.ID,
		Name:         "Porton",
		Center:       geofence.Coordinate{Latitude: -33.45, Longitude: -70.66},
		RadiusMeters: 100,
		CreatedAt:    time.Now(),
	}
	s.Require().NoError(s.zones.CreateZone(ctx, s.zone))
}

func (s *AttendancePostgresSuite) insertEvent(tipo presence.EventType, at time.Time) attendance.Event {
	e := attendance.Event{
		ID:         id.NewEventID(),
		ProfileID:  s.worker.ID,
		GeofenceID: s.zone.ID,
		Type:       tipo,
		Latitude:   -33.4501,
		Longitude:  -70.6601,
		Valid:      true,
		Note:       "on time",
		RecordedAt: at,
	}
	s.Require().NoError(s.store.Insert(context.Background(), e))
	return e
}

func (s *AttendancePostgresSuite) TestInsertAndLastSince() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond).Add(-2 * time.Hour)

	s.insertEvent(presence.Entrada, base)
	latest := s.insertEvent(presence.Salida, base.Add(time.Hour))

	found, err := s.store.LastSince(ctx, s.worker.ID, base.Add(-time.Minute))
	s.Require().NoError(err)
	s.Equal(latest.ID, found.ID)
	s.Equal(presence.Salida, found.Type)
	s.InDelta(latest.Latitude, found.Latitude, 1e-9)
	s.Equal("on time", found.Note)

	_, err = s.store.LastSince(ctx, s.worker.ID, base.Add(2*time.Hour))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.LastSince(ctx, id.NewProfileID(), base)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *AttendancePostgresSuite) TestHistoryWindowAndOrder() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond).Add(-72 * time.Hour)

	old := s.insertEvent(presence.Entrada, base)
	mid := s.insertEvent(presence.Salida, base.Add(24*time.Hour))
	recent := s.insertEvent(presence.Entrada, base.Add(48*time.Hour))

	events, err := s.store.History(ctx, s.worker.ID, base.Add(12*time.Hour), 50)
	s.Require().NoError(err)
	s.Require().Len(events, 2, "events before the window stay out")
	s.Equal(recent.ID, events[0].ID)
	s.Equal(mid.ID, events[1].ID)

	limited, err := s.store.History(ctx, s.worker.ID, base.Add(-time.Hour), 2)
	s.Require().NoError(err)
	s.Require().Len(limited, 2)
	s.NotEqual(old.ID, limited[0].ID)
	s.NotEqual(old.ID, limited[1].ID)
}
