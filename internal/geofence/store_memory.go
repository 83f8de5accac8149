package geofence

import (
	"context"
	"sort"
	"sync"

	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
)

// InMemoryStore keeps sites and zones in maps.
type InMemoryStore struct {
	mu    sync.RWMutex
	sites map[id.SiteID]Site
	zones map[id.GeofenceID]GeoFence
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sites: make(map[id.SiteID]Site),
		zones: make(map[id.GeofenceID]GeoFence),
	}
}

func (s *InMemoryStore) CreateSite(_ context.Context, site Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[site.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.sites {
		if existing.Name == site.Name {
			return sentinel.ErrConflict
		}
	}
	s.sites[site.ID] = site
	return nil
}

func (s *InMemoryStore) FindSite(_ context.Context, siteID id.SiteID) (Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if site, ok := s.sites[siteID]; ok {
		return site, nil
	}
	return Site{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) UpdateSite(_ context.Context, site Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[site.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.sites {
		if existing.ID != site.ID && existing.Name == site.Name {
			return sentinel.ErrConflict
		}
	}
	s.sites[site.ID] = site
	return nil
}

func (s *InMemoryStore) DeleteSite(_ context.Context, siteID id.SiteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[siteID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sites, siteID)
	return nil
}

func (s *InMemoryStore) ListSites(_ context.Context) ([]Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Site, 0, len(s.sites))
	for _, site := range s.sites {
		out = append(out, site)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) HasZones(_ context.Context, siteID id.SiteID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, zone := range s.zones {
		if zone.SiteID == siteID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) CreateZone(_ context.Context, zone GeoFence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[zone.SiteID]; !ok {
		return sentinel.ErrNotFound
	}
	if _, ok := s.zones[zone.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.zones {
		if existing.SiteID == zone.SiteID && existing.Name == zone.Name {
			return sentinel.ErrConflict
		}
	}
	s.zones[zone.ID] = zone
	return nil
}

func (s *InMemoryStore) FindZone(_ context.Context, zoneID id.GeofenceID) (GeoFence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if zone, ok := s.zones[zoneID]; ok {
		return zone, nil
	}
	return GeoFence{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) UpdateZone(_ context.Context, zone GeoFence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[zone.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.zones {
		if existing.ID != zone.ID && existing.SiteID == zone.SiteID && existing.Name == zone.Name {
			return sentinel.ErrConflict
		}
	}
	s.zones[zone.ID] = zone
	return nil
}

func (s *InMemoryStore) DeleteZone(_ context.Context, zoneID id.GeofenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[zoneID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.zones, zoneID)
	return nil
}

func (s *InMemoryStore) ListZonesBySite(_ context.Context, siteID id.SiteID) ([]GeoFence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []GeoFence
	for _, zone := range s.zones {
		if zone.SiteID == siteID {
			out = append(out, zone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Snapshot and Restore implement the memory unit of work's rollback hooks.

type memorySnapshot struct {
	sites map[id.SiteID]Site
	zones map[id.GeofenceID]GeoFence
}

func (s *InMemoryStore) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := memorySnapshot{
		sites: make(map[id.SiteID]Site, len(s.sites)),
		zones: make(map[id.GeofenceID]GeoFence, len(s.zones)),
	}
	for k, v := range s.sites {
		snap.sites[k] = v
	}
	for k, v := range s.zones {
		snap.zones[k] = v
	}
	return snap
}

func (s *InMemoryStore) Restore(snapshot any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot.(memorySnapshot)
	s.sites = snap.sites
	s.zones = snap.zones
}
