package assignment

import (
	"context"
	"errors"

	"geoasistencia/internal/audit"
	"geoasistencia/internal/geofence"
	"geoasistencia/internal/profile"
	"geoasistencia/internal/schedule"
	id "geoasistencia/pkg/domain"
	dErrors "geoasistencia/pkg/domain-errors"
	"geoasistencia/pkg/platform/sentinel"
	"geoasistencia/pkg/requestcontext"
)

// Store is the assignment persistence the service needs.
type Store interface {
	Create(ctx context.Context, a Assignment) error
	Find(ctx context.Context, profileID id.ProfileID, zoneID id.GeofenceID) (Assignment, error)
	Remove(ctx context.Context, profileID id.ProfileID, zoneID id.GeofenceID) error
	ListAssigned(ctx context.Context, zoneID id.GeofenceID) ([]AssignedProfile, error)
	ListAvailable(ctx context.Context, zoneID id.GeofenceID) ([]profile.Summary, error)
}

// ProfileFinder resolves the profile side of a pairing.
type ProfileFinder interface {
	FindByID(ctx context.Context, profileID id.ProfileID) (profile.Profile, error)
}

// ZoneFinder resolves the geofence side of a pairing.
type ZoneFinder interface {
	FindZone(ctx context.Context, zoneID id.GeofenceID) (geofence.GeoFence, error)
}

// Runner opens the unit of work a mutation and its audit record share.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service owns the profile-to-geofence relation. Every mutation writes its
// audit record inside the same transaction.
type Service struct {
	store    Store
	profiles ProfileFinder
	zones    ZoneFinder
	auditor  *audit.Service
	runner   Runner
}

func NewService(store Store, profiles ProfileFinder, zones ZoneFinder, auditor *audit.Service, runner Runner) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		zones:    zones,
		auditor:  auditor,
		runner:   runner,
	}
}

// detail is the ledger payload shape for assignment mutations.
type detail struct {
	ProfileID  string `json:"perfil_id"`
	GeofenceID string `json:"geocerca_id"`
	Entry      string `json:"hora_entrada"`
	Exit       string `json:"hora_salida"`
}

func detailOf(a Assignment) detail {
	return detail{
		ProfileID:  a.ProfileID.String(),
		GeofenceID: a.GeofenceID.String(),
		Entry:      a.Schedule.Entry,
		Exit:       a.Schedule.Exit,
	}
}

// Create pairs a profile with a zone under the given schedule.
func (s *Service) Create(ctx context.Context, profileID id.ProfileID, zoneID id.GeofenceID, entry, exit string) (Assignment, error) {
	sched, err := schedule.Parse(entry, exit)
	if err != nil {
		return Assignment{}, err
	}

	if _, err := s.profiles.FindByID(ctx, profileID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Assignment{}, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return Assignment{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	if _, err := s.zones.FindZone(ctx, zoneID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Assignment{}, dErrors.New(dErrors.CodeNotFound, "geofence not found")
		}
		return Assignment{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load geofence")
	}

	a := Assignment{
		ProfileID:  profileID,
		GeofenceID: zoneID,
		Schedule:   sched,
		CreatedAt:  requestcontext.Now(ctx),
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, a); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "profile is already assigned to this geofence")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "profile or geofence not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create assignment")
		}
		payload, err := audit.CreatedDetail(detailOf(a))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TableAsignacion, audit.ActionCreate, payload)
	})
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// Remove deletes the (profile, zone) pairing.
func (s *Service) Remove(ctx context.Context, profileID id.ProfileID, zoneID id.GeofenceID) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.Find(ctx, profileID, zoneID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "assignment not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assignment")
		}
		if err := s.store.Remove(ctx, profileID, zoneID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove assignment")
		}
		payload, err := audit.DeletedDetail(detailOf(existing))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TableAsignacion, audit.ActionDelete, payload)
	})
}

// Change moves a profile from one zone to another in a single transaction.
// The ledger sees one UPDATE with the old pairing as "antes" and the new one
// as "despues"; if the create half fails, the remove half rolls back with it.
func (s *Service) Change(ctx context.Context, profileID id.ProfileID, oldZoneID, newZoneID id.GeofenceID, entry, exit string) (Assignment, error) {
	sched, err := schedule.Parse(entry, exit)
	if err != nil {
		return Assignment{}, err
	}
	if _, err := s.zones.FindZone(ctx, newZoneID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Assignment{}, dErrors.New(dErrors.CodeNotFound, "geofence not found")
		}
		return Assignment{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load geofence")
	}

	next := Assignment{
		ProfileID:  profileID,
		GeofenceID: newZoneID,
		Schedule:   sched,
		CreatedAt:  requestcontext.Now(ctx),
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		previous, err := s.store.Find(ctx, profileID, oldZoneID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "assignment not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assignment")
		}
		if err := s.store.Remove(ctx, profileID, oldZoneID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove assignment")
		}
		if err := s.store.Create(ctx, next); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "profile is already assigned to this geofence")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "profile or geofence not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create assignment")
		}
		payload, err := audit.ChangeDetail(detailOf(previous), detailOf(next))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TableAsignacion, audit.ActionUpdate, payload)
	})
	if err != nil {
		return Assignment{}, err
	}
	return next, nil
}

// ListAssigned returns the roster of a zone.
func (s *Service) ListAssigned(ctx context.Context, zoneID id.GeofenceID) ([]AssignedProfile, error) {
	if _, err := s.zones.FindZone(ctx, zoneID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "geofence not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load geofence")
	}
	out, err := s.store.ListAssigned(ctx, zoneID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assigned profiles")
	}
	return out, nil
}

// ListAvailable returns active profiles not yet assigned to the zone. The
// site parameter guards against listing a zone under the wrong site.
func (s *Service) ListAvailable(ctx context.Context, zoneID id.GeofenceID, siteID id.SiteID) ([]profile.Summary, error) {
	zone, err := s.zones.FindZone(ctx, zoneID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "geofence not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load geofence")
	}
	if !siteID.IsNil() && zone.SiteID != siteID {
		return nil, dErrors.New(dErrors.CodeNotFound, "geofence does not belong to the given site")
	}
	out, err := s.store.ListAvailable(ctx, zoneID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list available profiles")
	}
	return out, nil
}
