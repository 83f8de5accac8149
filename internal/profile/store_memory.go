package profile

import (
	"context"
	"sort"
	"sync"

	"geoasistencia/internal/presence"
	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles in a map. It backs unit tests and the
// in-memory deployment mode; the snapshot hooks let the memory unit of work
// roll a failed transaction back.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.ProfileID]Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.ProfileID]Profile)}
}

func (s *InMemoryStore) Create(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.profiles {
		if existing.EmployeeCode == p.EmployeeCode {
			return sentinel.ErrConflict
		}
	}
	s.profiles[p.ID] = p
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, profileID id.ProfileID) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[profileID]; ok {
		return p, nil
	}
	return Profile{}, sentinel.ErrNotFound
}

// FindEmployeeCode resolves the code the audit listing shows per actor.
func (s *InMemoryStore) FindEmployeeCode(ctx context.Context, profileID id.ProfileID) (string, error) {
	p, err := s.FindByID(ctx, profileID)
	if err != nil {
		return "", err
	}
	return p.EmployeeCode, nil
}

// FindByIDForUpdate matches the postgres store's row-lock read. The memory
// unit of work serializes whole transactions, so a plain read suffices here.
func (s *InMemoryStore) FindByIDForUpdate(ctx context.Context, profileID id.ProfileID) (Profile, error) {
	return s.FindByID(ctx, profileID)
}

// List returns every profile, ordered by employee code. The postgres store
// has no equivalent; relational reads that need all profiles join in SQL.
func (s *InMemoryStore) List(_ context.Context) ([]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeCode < out[j].EmployeeCode })
	return out, nil
}

func (s *InMemoryStore) UpdatePresence(_ context.Context, profileID id.ProfileID, p presence.Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[profileID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Presence = p
	s.profiles[profileID] = existing
	return nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, profileID id.ProfileID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[profileID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Status = status
	s.profiles[profileID] = existing
	return nil
}

func (s *InMemoryStore) UpdateRole(_ context.Context, profileID id.ProfileID, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[profileID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Role = role
	s.profiles[profileID] = existing
	return nil
}

// Snapshot and Restore implement the memory unit of work's rollback hooks.

func (s *InMemoryStore) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := make(map[id.ProfileID]Profile, len(s.profiles))
	for k, v := range s.profiles {
		clone[k] = v
	}
	return clone
}

func (s *InMemoryStore) Restore(snapshot any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = snapshot.(map[id.ProfileID]Profile)
}
