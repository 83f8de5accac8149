package geofence

import (
	"context"
	"errors"
	"strings"

	"geoasistencia/internal/audit"
	id "geoasistencia/pkg/domain"
	dErrors "geoasistencia/pkg/domain-errors"
	"geoasistencia/pkg/platform/sentinel"
	"geoasistencia/pkg/requestcontext"
)

// Store is the site and zone persistence the service needs.
type Store interface {
	CreateSite(ctx context.Context, site Site) error
	FindSite(ctx context.Context, siteID id.SiteID) (Site, error)
	UpdateSite(ctx context.Context, site Site) error
	DeleteSite(ctx context.Context, siteID id.SiteID) error
	ListSites(ctx context.Context) ([]Site, error)
	HasZones(ctx context.Context, siteID id.SiteID) (bool, error)
	CreateZone(ctx context.Context, zone GeoFence) error
	FindZone(ctx context.Context, zoneID id.GeofenceID) (GeoFence, error)
	UpdateZone(ctx context.Context, zone GeoFence) error
	DeleteZone(ctx context.Context, zoneID id.GeofenceID) error
	ListZonesBySite(ctx context.Context, siteID id.SiteID) ([]GeoFence, error)
}

// AssignmentChecker reports whether a zone still has assigned profiles.
// Defined here to keep the dependency pointing from assignment to geofence,
// not both ways.
type AssignmentChecker interface {
	ExistsForZone(ctx context.Context, zoneID id.GeofenceID) (bool, error)
}

// Runner opens the unit of work a mutation and its audit record share.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service owns the audited site and zone mutations.
type Service struct {
	store       Store
	assignments AssignmentChecker
	auditor     *audit.Service
	runner      Runner
}

func NewService(store Store, assignments AssignmentChecker, auditor *audit.Service, runner Runner) *Service {
	return &Service{
		store:       store,
		assignments: assignments,
		auditor:     auditor,
		runner:      runner,
	}
}

type siteDetail struct {
	ID      string `json:"id"`
	Name    string `json:"nombre"`
	Address string `json:"direccion"`
}

func siteDetailOf(site Site) siteDetail {
	return siteDetail{ID: site.ID.String(), Name: site.Name, Address: site.Address}
}

type zoneDetail struct {
	ID           string  `json:"id"`
	SiteID       string  `json:"sede_id"`
	Name         string  `json:"nombre"`
	Latitude     float64 `json:"latitud"`
	Longitude    float64 `json:"longitud"`
	RadiusMeters float64 `json:"radio_metros"`
}

func zoneDetailOf(zone GeoFence) zoneDetail {
	return zoneDetail{
		ID:           zone.ID.String(),
		SiteID:       zone.SiteID.String(),
		Name:         zone.Name,
		Latitude:     zone.Center.Latitude,
		Longitude:    zone.Center.Longitude,
		RadiusMeters: zone.RadiusMeters,
	}
}

func (s *Service) CreateSite(ctx context.Context, name, address string) (Site, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Site{}, dErrors.New(dErrors.CodeInvalidInput, "nombre is required")
	}

	site := Site{
		ID:        id.NewSiteID(),
		Name:      name,
		Address:   strings.TrimSpace(address),
		CreatedAt: requestcontext.Now(ctx),
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateSite(ctx, site); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a site with this name already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create site")
		}
		payload, err := audit.CreatedDetail(siteDetailOf(site))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TableSede, audit.ActionCreate, payload)
	})
	if err != nil {
		return Site{}, err
	}
	return site, nil
}

func (s *Service) UpdateSite(ctx context.Context, siteID id.SiteID, name, address string) (Site, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Site{}, dErrors.New(dErrors.CodeInvalidInput, "nombre is required")
	}

	var updated Site
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		previous, err := s.store.FindSite(ctx, siteID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "site not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load site")
		}

		updated = previous
		updated.Name = name
		updated.Address = strings.TrimSpace(address)

		if err := s.store.UpdateSite(ctx, updated); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a site with this name already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update site")
		}
		payload, err := audit.ChangeDetail(siteDetailOf(previous), siteDetailOf(updated))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TableSede, audit.ActionUpdate, payload)
	})
	if err != nil {
		return Site{}, err
	}
	return updated, nil
}

// DeleteSite removes a site with no zones left under it.
func (s *Service) DeleteSite(ctx context.Context, siteID id.SiteID) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		site, err := s.store.FindSite(ctx, siteID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "site not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load site")
		}
		hasZones, err := s.store.HasZones(ctx, siteID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check site zones")
		}
		if hasZones {
			return dErrors.New(dErrors.CodeConflict, "site still has geofences")
		}
		if err := s.store.DeleteSite(ctx, siteID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete site")
		}
		payload, err := audit.DeletedDetail(siteDetailOf(site))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TableSede, audit.ActionDelete, payload)
	})
}

func (s *Service) ListSites(ctx context.Context) ([]Site, error) {
	sites, err := s.store.ListSites(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sites")
	}
	return sites, nil
}

func validateZoneInput(name string, center Coordinate, radius float64) error {
	if strings.TrimSpace(name) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "nombre is required")
	}
	if !center.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "latitud/longitud outside valid range")
	}
	if radius <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "radio_metros must be positive")
	}
	return nil
}

func (s *Service) CreateZone(ctx context.Context, siteID id.SiteID, name string, center Coordinate, radius float64) (GeoFence, error) {
	if err := validateZoneInput(name, center, radius); err != nil {
		return GeoFence{}, err
	}
	if _, err := s.store.FindSite(ctx, siteID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return GeoFence{}, dErrors.New(dErrors.CodeNotFound, "site not found")
		}
		return GeoFence{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load site")
	}

	zone := GeoFence{
		ID:           id.NewGeofenceID(),
		SiteID:       siteID,
		Name:         strings.TrimSpace(name),
		Center:       center,
		RadiusMeters: radius,
		CreatedAt:    requestcontext.Now(ctx),
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateZone(ctx, zone); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a geofence with this name already exists in the site")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "site not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create geofence")
		}
		payload, err := audit.CreatedDetail(zoneDetailOf(zone))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TableGeocerca, audit.ActionCreate, payload)
	})
	if err != nil {
		return GeoFence{}, err
	}
	return zone, nil
}

func (s *Service) UpdateZone(ctx context.Context, zoneID id.GeofenceID, name string, center Coordinate, radius float64) (GeoFence, error) {
	if err := validateZoneInput(name, center, radius); err != nil {
		return GeoFence{}, err
	}

	var updated GeoFence
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		previous, err := s.store.FindZone(ctx, zoneID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "geofence not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load geofence")
		}

		updated = previous
		updated.Name = strings.TrimSpace(name)
		updated.Center = center
		updated.RadiusMeters = radius

		if err := s.store.UpdateZone(ctx, updated); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a geofence with this name already exists in the site")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update geofence")
		}
		payload, err := audit.ChangeDetail(zoneDetailOf(previous), zoneDetailOf(updated))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TableGeocerca, audit.ActionUpdate, payload)
	})
	if err != nil {
		return GeoFence{}, err
	}
	return updated, nil
}

// DeleteZone refuses while profiles are still assigned to the zone; the
// ledger stays untouched on that path.
func (s *Service) DeleteZone(ctx context.Context, zoneID id.GeofenceID) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		zone, err := s.store.FindZone(ctx, zoneID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "geofence not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load geofence")
		}
		assigned, err := s.assignments.ExistsForZone(ctx, zoneID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check zone assignments")
		}
		if assigned {
			return dErrors.New(dErrors.CodeConflict, "geofence still has assigned profiles")
		}
		if err := s.store.DeleteZone(ctx, zoneID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete geofence")
		}
		payload, err := audit.DeletedDetail(zoneDetailOf(zone))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TableGeocerca, audit.ActionDelete, payload)
	})
}

func (s *Service) ListZones(ctx context.Context, siteID id.SiteID) ([]GeoFence, error) {
	if _, err := s.store.FindSite(ctx, siteID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "site not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load site")
	}
	zones, err := s.store.ListZonesBySite(ctx, siteID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list geofences")
	}
	return zones, nil
}
