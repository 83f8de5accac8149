package assignment

import (
	"context"
	"errors"
	"sort"
	"sync"

	"geoasistencia/internal/geofence"
	"geoasistencia/internal/profile"
	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
)

// ProfileDirectory is the profile access the memory store needs to build its
// roster projections. The relational store does these joins in SQL instead.
type ProfileDirectory interface {
	FindByID(ctx context.Context, profileID id.ProfileID) (profile.Profile, error)
	List(ctx context.Context) ([]profile.Profile, error)
}

// ZoneDirectory resolves geofences for the zones-per-profile projection.
type ZoneDirectory interface {
	FindZone(ctx context.Context, zoneID id.GeofenceID) (geofence.GeoFence, error)
}

type pairKey struct {
	profile id.ProfileID
	zone    id.GeofenceID
}

// InMemoryStore keeps assignments keyed by (profile, zone) pair.
type InMemoryStore struct {
	mu       sync.RWMutex
	pairs    map[pairKey]Assignment
	profiles ProfileDirectory
	zones    ZoneDirectory
}

func NewInMemoryStore(profiles ProfileDirectory, zones ZoneDirectory) *InMemoryStore {
	return &InMemoryStore{
		pairs:    make(map[pairKey]Assignment),
		profiles: profiles,
		zones:    zones,
	}
}

func (s *InMemoryStore) Create(_ context.Context, a Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{profile: a.ProfileID, zone: a.GeofenceID}
	if _, ok := s.pairs[key]; ok {
		return sentinel.ErrConflict
	}
	s.pairs[key] = a
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, profileID id.ProfileID, zoneID id.GeofenceID) (Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.pairs[pairKey{profile: profileID, zone: zoneID}]; ok {
		return a, nil
	}
	return Assignment{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Remove(_ context.Context, profileID id.ProfileID, zoneID id.GeofenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{profile: profileID, zone: zoneID}
	if _, ok := s.pairs[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.pairs, key)
	return nil
}

// ListZonesForProfile returns the zones the profile may register from,
// each paired with its schedule. Zones deleted out from under an assignment
// are skipped rather than failing the whole attendance path.
func (s *InMemoryStore) ListZonesForProfile(ctx context.Context, profileID id.ProfileID) ([]ZoneSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ZoneSchedule
	for key, a := range s.pairs {
		if key.profile != profileID {
			continue
		}
		zone, err := s.zones.FindZone(ctx, key.zone)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, ZoneSchedule{Zone: zone, Schedule: a.Schedule})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Zone.Name < out[j].Zone.Name })
	return out, nil
}

func (s *InMemoryStore) ListAssigned(ctx context.Context, zoneID id.GeofenceID) ([]AssignedProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AssignedProfile
	for key, a := range s.pairs {
		if key.zone != zoneID {
			continue
		}
		p, err := s.profiles.FindByID(ctx, key.profile)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, AssignedProfile{
			Profile: profile.Summary{
				ID:           p.ID,
				PersonName:   p.PersonName,
				EmployeeCode: p.EmployeeCode,
				JobTitle:     p.JobTitle,
			},
			Schedule:   a.Schedule,
			AssignedAt: a.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Profile.PersonName < out[j].Profile.PersonName })
	return out, nil
}

// ListAvailable returns active profiles not yet assigned to the zone.
func (s *InMemoryStore) ListAvailable(ctx context.Context, zoneID id.GeofenceID) ([]profile.Summary, error) {
	all, err := s.profiles.List(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []profile.Summary
	for _, p := range all {
		if !p.CanRegister() {
			continue
		}
		if _, assigned := s.pairs[pairKey{profile: p.ID, zone: zoneID}]; assigned {
			continue
		}
		out = append(out, profile.Summary{
			ID:           p.ID,
			PersonName:   p.PersonName,
			EmployeeCode: p.EmployeeCode,
			JobTitle:     p.JobTitle,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonName < out[j].PersonName })
	return out, nil
}

func (s *InMemoryStore) ExistsForZone(_ context.Context, zoneID id.GeofenceID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key := range s.pairs {
		if key.zone == zoneID {
			return true, nil
		}
	}
	return false, nil
}

// Snapshot and Restore implement the memory unit of work's rollback hooks.

func (s *InMemoryStore) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := make(map[pairKey]Assignment, len(s.pairs))
	for k, v := range s.pairs {
		clone[k] = v
	}
	return clone
}

func (s *InMemoryStore) Restore(snapshot any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = snapshot.(map[pairKey]Assignment)
}
