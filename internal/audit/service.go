package audit

import (
	"context"
	"encoding/json"
	"errors"

	"geoasistencia/internal/platform/metrics"
	id "geoasistencia/pkg/domain"
	dErrors "geoasistencia/pkg/domain-errors"
	"geoasistencia/pkg/platform/sentinel"
	"geoasistencia/pkg/requestcontext"
)

// Store is the ledger persistence the service needs.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int, cursor Cursor, hasCursor bool) ([]RecordWithActor, error)
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Service owns ledger writes and reads. Append is only ever called by the
// mutating services, inside their unit of work.
type Service struct {
	store   Store
	metrics *metrics.Metrics
}

func NewService(store Store, m *metrics.Metrics) *Service {
	return &Service{store: store, metrics: m}
}

// Append writes one ledger record for the mutation the surrounding
// transaction performs. The actor is required: anonymous admin mutations do
// not exist in this engine.
func (s *Service) Append(ctx context.Context, actor id.ProfileID, table Table, action Action, detail json.RawMessage) error {
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "audit actor is required")
	}
	rec := Record{
		ID:        id.NewAuditID(),
		ActorID:   actor,
		Table:     table,
		Action:    action,
		Detail:    detail,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Append(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "audit append outside transaction")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit record")
	}
	s.metrics.RecordAuditAppend()
	return nil
}

// Page is one bounded slice of the ledger, newest first.
type Page struct {
	Records    []RecordWithActor
	NextCursor string
}

// List returns the most recent records. limit is clamped to [1, 100] with a
// default of 50; the continuation token walks older pages.
func (s *Service) List(ctx context.Context, limit int, cursorToken string) (Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	cursor, hasCursor, err := DecodeCursor(cursorToken)
	if err != nil {
		return Page{}, err
	}

	records, err := s.store.List(ctx, limit, cursor, hasCursor)
	if err != nil {
		return Page{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit records")
	}

	page := Page{Records: records}
	if len(records) == limit {
		last := records[len(records)-1]
		page.NextCursor = Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}
