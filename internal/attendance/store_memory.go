package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
)

// InMemoryStore keeps events in insertion order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Insert(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// LastSince returns the profile's most recent event at or after since.
func (s *InMemoryStore) LastSince(_ context.Context, profileID id.ProfileID, since time.Time) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  Event
		found bool
	)
	for _, e := range s.events {
		if e.ProfileID != profileID || e.RecordedAt.Before(since) {
			continue
		}
		if !found || e.RecordedAt.After(best.RecordedAt) {
			best = e
			found = true
		}
	}
	if !found {
		return Event{}, sentinel.ErrNotFound
	}
	return best, nil
}

// History returns the profile's events at or after since, newest first,
// capped at limit.
func (s *InMemoryStore) History(_ context.Context, profileID id.ProfileID, since time.Time, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.ProfileID == profileID && !e.RecordedAt.Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count reports the total number of events. Test helper.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Snapshot and Restore implement the memory unit of work's rollback hooks.

func (s *InMemoryStore) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := make([]Event, len(s.events))
	copy(clone, s.events)
	return clone
}

func (s *InMemoryStore) Restore(snapshot any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = snapshot.([]Event)
}
