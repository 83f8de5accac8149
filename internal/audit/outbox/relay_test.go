package outbox

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"geoasistencia/internal/audit"
	id "geoasistencia/pkg/domain"
)

type stubStore struct {
	pending []audit.OutboxRow
	marked  [][]id.AuditID
}

func (s *stubStore) FetchUnpublished(_ context.Context, limit int) ([]audit.OutboxRow, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubStore) MarkPublished(_ context.Context, ids []id.AuditID) error {
	s.marked = append(s.marked, ids)
	remaining := s.pending[:0]
	for _, row := range s.pending {
		published := false
		for _, markedID := range ids {
			if row.ID == markedID {
				published = true
				break
			}
		}
		if !published {
			remaining = append(remaining, row)
		}
	}
	s.pending = remaining
	return nil
}

type stubPublisher struct {
	published int
	failAfter int
	err       error
}

func (p *stubPublisher) Publish(context.Context, []byte, []byte) error {
	if p.err != nil && p.published >= p.failAfter {
		return p.err
	}
	p.published++
	return nil
}

type RelaySuite struct {
	suite.Suite
	store     *stubStore
	publisher *stubPublisher
	relay     *Relay
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.store = &stubStore{}
	s.publisher = &stubPublisher{}
	s.relay = NewRelay(s.store, s.publisher, slog.Default(), nil, time.Second)
}

func (s *RelaySuite) pend(n int) {
	for i := 0; i < n; i++ {
		s.store.pending = append(s.store.pending, audit.OutboxRow{
			ID:      id.NewAuditID(),
			Payload: []byte(`{}`),
		})
	}
}

func (s *RelaySuite) TestDrain() {
	s.Run("publishes and marks every pending row", func() {
		s.SetupTest()
		s.pend(5)

		s.Require().NoError(s.relay.drain(context.Background()))
		s.Equal(5, s.publisher.published)
		s.Empty(s.store.pending)
	})

	s.Run("no-ops on an empty outbox", func() {
		s.SetupTest()
		s.Require().NoError(s.relay.drain(context.Background()))
		s.Zero(s.publisher.published)
		s.Empty(s.store.marked)
	})

	s.Run("keeps unpublished rows for the next poll on failure", func() {
		s.SetupTest()
		s.pend(5)
		s.publisher.failAfter = 2
		s.publisher.err = errors.New("broker unavailable")

		err := s.relay.drain(context.Background())
		s.Require().Error(err)
		// the two rows that made it through are marked, three remain
		s.Equal(2, s.publisher.published)
		s.Len(s.store.pending, 3)
	})

	s.Run("drains more than one batch", func() {
		s.SetupTest()
		s.pend(batchSize + 10)

		s.Require().NoError(s.relay.drain(context.Background()))
		s.Equal(batchSize+10, s.publisher.published)
		s.Empty(s.store.pending)
	})
}
