package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"geoasistencia/internal/assignment"
	"geoasistencia/internal/geofence"
	"geoasistencia/internal/geofence/evaluator"
	"geoasistencia/internal/platform/metrics"
	"geoasistencia/internal/presence"
	"geoasistencia/internal/profile"
	"geoasistencia/internal/schedule"
	id "geoasistencia/pkg/domain"
	dErrors "geoasistencia/pkg/domain-errors"
	"geoasistencia/pkg/platform/sentinel"
	"geoasistencia/pkg/requestcontext"
)

const (
	historyRowCap  = 50
	historyMaxDays = 90
	historyDefault = 7
)

// ProfileStore is the profile access the recorder needs. The ForUpdate read
// is what serializes racing submissions for one profile.
type ProfileStore interface {
	FindByID(ctx context.Context, profileID id.ProfileID) (profile.Profile, error)
	FindByIDForUpdate(ctx context.Context, profileID id.ProfileID) (profile.Profile, error)
	UpdatePresence(ctx context.Context, profileID id.ProfileID, p presence.Presence) error
}

// AssignmentSource yields the zones a profile may register from.
type AssignmentSource interface {
	ListZonesForProfile(ctx context.Context, profileID id.ProfileID) ([]assignment.ZoneSchedule, error)
}

// EventStore is the attendance ledger persistence.
type EventStore interface {
	Insert(ctx context.Context, e Event) error
	LastSince(ctx context.Context, profileID id.ProfileID, since time.Time) (Event, error)
	History(ctx context.Context, profileID id.ProfileID, since time.Time, limit int) ([]Event, error)
}

// Guard deduplicates repeated submissions. A nil-safe no-op without Redis.
type Guard interface {
	Reserve(ctx context.Context, profileID id.ProfileID, key string) (bool, error)
}

// Runner opens the unit of work the event insert and presence flip share.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the attendance recorder. Register is the single entry point for
// ENTRADA and SALIDA alike; both branches share validation, membership
// testing, classification and the transactional write.
type Service struct {
	logger      *slog.Logger
	profiles    ProfileStore
	assignments AssignmentSource
	events      EventStore
	guard       Guard
	runner      Runner
	metrics     *metrics.Metrics
	location    *time.Location
}

func NewService(
	profiles ProfileStore,
	assignments AssignmentSource,
	events EventStore,
	guard Guard,
	runner Runner,
	m *metrics.Metrics,
	location *time.Location,
	logger *slog.Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		logger:      logger,
		profiles:    profiles,
		assignments: assignments,
		events:      events,
		guard:       guard,
		runner:      runner,
		metrics:     m,
		location:    location,
	}
}

// Register records one attendance event. The server clock is authoritative
// for both the stored timestamp and the schedule classification; coordinates
// are the only client-supplied facts that survive into the ledger.
func (s *Service) Register(ctx context.Context, profileID id.ProfileID, eventType presence.EventType, coord geofence.Coordinate, idemKey string) (Registration, error) {
	if profileID.IsNil() {
		return Registration{}, dErrors.New(dErrors.CodeUnauthorized, "missing profile identity")
	}
	if !coord.Valid() {
		return Registration{}, dErrors.New(dErrors.CodeInvalidInput, "latitud/longitud outside valid range")
	}

	if idemKey != "" {
		fresh, err := s.guard.Reserve(ctx, profileID, idemKey)
		if err != nil {
			// best-effort guard: a broken Redis must not block attendance
			s.logger.WarnContext(ctx, "idempotency guard unavailable", "error", err)
		} else if !fresh {
			s.metrics.RecordIdempotencyReplay()
			return Registration{}, dErrors.New(dErrors.CodeConflict, "duplicate submission")
		}
	}

	now := requestcontext.Now(ctx)
	var reg Registration

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.profiles.FindByIDForUpdate(ctx, profileID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "profile not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
		}
		if !p.CanRegister() {
			return dErrors.New(dErrors.CodeForbidden, "profile is not active")
		}

		// re-validated under the row lock: of two racing ENTRADAs the
		// second sees presence already IN and conflicts here
		next, err := presence.Transition(p.Presence, eventType)
		if err != nil {
			return err
		}

		zones, err := s.assignments.ListZonesForProfile(ctx, profileID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assigned zones")
		}
		candidates := make([]geofence.GeoFence, 0, len(zones))
		schedules := make(map[id.GeofenceID]schedule.Schedule, len(zones))
		for _, zs := range zones {
			candidates = append(candidates, zs.Zone)
			schedules[zs.Zone.ID] = zs.Schedule
		}

		match, inside := evaluator.Nearest(coord, candidates)
		if !inside {
			s.metrics.RecordGeofenceRejection()
			return dErrors.New(dErrors.CodeForbidden, "not within any assigned zone")
		}

		class := schedules[match.Zone.ID].Classify(eventType, schedule.WallClock(now, s.location))

		event := Event{
			ID:         id.NewEventID(),
			ProfileID:  profileID,
			GeofenceID: match.Zone.ID,
			Type:       eventType,
			Latitude:   coord.Latitude,
			Longitude:  coord.Longitude,
			Valid:      true,
			Note:       string(class),
			RecordedAt: now,
		}
		if err := s.events.Insert(ctx, event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record event")
		}
		if err := s.profiles.UpdatePresence(ctx, profileID, next); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update presence")
		}

		reg = Registration{
			Event:          event,
			ZoneName:       match.Zone.Name,
			DistanceMeters: match.DistanceMeters,
			Classification: class,
			Presence:       next,
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordEvent(string(eventType), "rejected")
		return Registration{}, err
	}

	s.metrics.RecordEvent(string(eventType), "ok")
	return reg, nil
}

// Last returns the profile's current presence and today's most recent event,
// if any. "Today" is the configured deployment timezone's calendar day.
func (s *Service) Last(ctx context.Context, profileID id.ProfileID) (LastStatus, error) {
	p, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return LastStatus{}, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return LastStatus{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}

	now := requestcontext.Now(ctx).In(s.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)

	status := LastStatus{Presence: p.Presence}
	event, err := s.events.LastSince(ctx, profileID, dayStart)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return status, nil
		}
		return LastStatus{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load last event")
	}
	status.Event = &event
	return status, nil
}

// History returns the profile's events for the trailing days window, newest
// first. days is clamped to [1, 90] with a default of 7; at most 50 rows.
func (s *Service) History(ctx context.Context, profileID id.ProfileID, days int) ([]Event, error) {
	if days <= 0 {
		days = historyDefault
	}
	if days > historyMaxDays {
		days = historyMaxDays
	}

	now := requestcontext.Now(ctx).In(s.location)
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location).AddDate(0, 0, -(days - 1))

	events, err := s.events.History(ctx, profileID, since, historyRowCap)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendance history")
	}
	return events, nil
}
