package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
	txcontext "geoasistencia/pkg/platform/tx"
)

// PostgresStore persists ledger records in auditoria and mirrors each append
// into auditoria_outbox for the Kafka relay (transactional outbox). The
// ledger row is the contract; the outbox is observational.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append refuses to run outside a transaction: an audit record that could
// commit independently of its mutation would break the ledger's guarantee.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	tx, ok := txcontext.From(ctx)
	if !ok {
		return fmt.Errorf("audit append outside transaction: %w", sentinel.ErrInvalidState)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO auditoria (id, admin_perfil_id, tabla_afectada, accion, detalle_cambio, creado_en)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID.String(), rec.ActorID.String(), string(rec.Table), string(rec.Action),
		[]byte(rec.Detail), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	payload, err := json.Marshal(outboxPayload{
		ID:        rec.ID.String(),
		ActorID:   rec.ActorID.String(),
		Table:     string(rec.Table),
		Action:    string(rec.Action),
		Detail:    rec.Detail,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO auditoria_outbox (id, payload, publicado) VALUES ($1, $2, false)`,
		rec.ID.String(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}
	return nil
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID        string          `json:"id"`
	ActorID   string          `json:"actor_id"`
	Table     string          `json:"tabla"`
	Action    string          `json:"accion"`
	Detail    json.RawMessage `json:"detalle"`
	CreatedAt string          `json:"creado_en"`
}

func (s *PostgresStore) List(ctx context.Context, limit int, cursor Cursor, hasCursor bool) ([]RecordWithActor, error) {
	query := `
		SELECT a.id, a.admin_perfil_id, a.tabla_afectada, a.accion, a.detalle_cambio,
		       a.creado_en, COALESCE(p.codigo_empleado, '')
		FROM auditoria a
		LEFT JOIN perfil p ON p.id = a.admin_perfil_id`
	args := []any{}
	if hasCursor {
		query += `
		WHERE (a.creado_en, a.id) < ($1, $2)`
		args = append(args, cursor.CreatedAt, cursor.ID.String())
	}
	args = append(args, limit)
	query += fmt.Sprintf(`
		ORDER BY a.creado_en DESC, a.id DESC
		LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var out []RecordWithActor
	for rows.Next() {
		var (
			rec     RecordWithActor
			rawID   uuid.UUID
			actorID uuid.UUID
			detail  []byte
		)
		if err := rows.Scan(&rawID, &actorID, &rec.Table, &rec.Action, &detail,
			&rec.CreatedAt, &rec.ActorEmployeeCode); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.ID = id.AuditID(rawID)
		rec.ActorID = id.ProfileID(actorID)
		rec.Detail = json.RawMessage(detail)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// OutboxRow is one unpublished audit payload awaiting relay.
type OutboxRow struct {
	ID      id.AuditID
	Payload []byte
}

// FetchUnpublished returns up to limit unpublished outbox rows, oldest
// first. A single relay instance polls the outbox; publishing twice after a
// crash between publish and mark is acceptable for an observational stream.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload FROM auditoria_outbox
		WHERE NOT publicado
		ORDER BY creado_en ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox rows: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var (
			rawID uuid.UUID
			row   OutboxRow
		)
		if err := rows.Scan(&rawID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		row.ID = id.AuditID(rawID)
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkPublished flags relayed rows so the next poll skips them.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []id.AuditID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, auditID := range ids {
		raw[i] = auditID.String()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE auditoria_outbox SET publicado = true, publicado_en = now()
		 WHERE id = ANY($1)`, pq.Array(raw))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
