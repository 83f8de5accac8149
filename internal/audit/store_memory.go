package audit

import (
	"context"
	"errors"
	"sort"
	"sync"

	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
)

// ActorLookup resolves the employee code shown in ledger listings.
type ActorLookup interface {
	FindEmployeeCode(ctx context.Context, profileID id.ProfileID) (string, error)
}

// InMemoryStore keeps ledger records in a slice. Append order is preserved;
// listing sorts newest first like the postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
	actors  ActorLookup
}

func NewInMemoryStore(actors ActorLookup) *InMemoryStore {
	return &InMemoryStore{actors: actors}
}

func (s *InMemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Count reports the total number of ledger records. Test helper.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *InMemoryStore) List(ctx context.Context, limit int, cursor Cursor, hasCursor bool) ([]RecordWithActor, error) {
	s.mu.RLock()
	ordered := make([]Record, len(s.records))
	copy(ordered, s.records)
	s.mu.RUnlock()

	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		}
		return ordered[i].ID.String() > ordered[j].ID.String()
	})

	out := make([]RecordWithActor, 0, limit)
	for _, rec := range ordered {
		if hasCursor && !recBefore(rec, cursor) {
			continue
		}
		code, err := s.actors.FindEmployeeCode(ctx, rec.ActorID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
		out = append(out, RecordWithActor{Record: rec, ActorEmployeeCode: code})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// recBefore reports whether rec sorts strictly after the cursor position in
// the newest-first ordering (i.e. belongs to a later page).
func recBefore(rec Record, cursor Cursor) bool {
	if !rec.CreatedAt.Equal(cursor.CreatedAt) {
		return rec.CreatedAt.Before(cursor.CreatedAt)
	}
	return rec.ID.String() < cursor.ID.String()
}

// Snapshot and Restore implement the memory unit of work's rollback hooks.

func (s *InMemoryStore) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := make([]Record, len(s.records))
	copy(clone, s.records)
	return clone
}

func (s *InMemoryStore) Restore(snapshot any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snapshot.([]Record)
}
