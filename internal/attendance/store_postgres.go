package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
	txcontext "geoasistencia/pkg/platform/tx"
)

// PostgresStore persists events in the registro_asistencia table. Besides the
// numeric lat/lon pair a geography point is stored, which keeps the table
// queryable with PostGIS tooling even though membership is decided in Go.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Insert(ctx context.Context, e Event) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO registro_asistencia
		        (id, perfil_id, geocerca_id, tipo, latitud, longitud, punto, valido, nota, creado_en)
		 VALUES ($1, $2, $3, $4, $5, $6,
		         ST_SetSRID(ST_MakePoint($6, $5), 4326)::geography, $7, $8, $9)`,
		e.ID.String(), e.ProfileID.String(), e.GeofenceID.String(), string(e.Type),
		e.Latitude, e.Longitude, e.Valid, e.Note, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attendance event: %w", err)
	}
	return nil
}

const eventColumns = `id, perfil_id, geocerca_id, tipo, latitud, longitud, valido, nota, creado_en`

func scanEvent(scan func(dest ...any) error) (Event, error) {
	var (
		e          Event
		rawID      uuid.UUID
		rawProfile uuid.UUID
		rawZone    uuid.UUID
	)
	err := scan(&rawID, &rawProfile, &rawZone, &e.Type,
		&e.Latitude, &e.Longitude, &e.Valid, &e.Note, &e.RecordedAt)
	if err != nil {
		return Event{}, err
	}
	e.ID = id.EventID(rawID)
	e.ProfileID = id.ProfileID(rawProfile)
	e.GeofenceID = id.GeofenceID(rawZone)
	return e, nil
}

func (s *PostgresStore) LastSince(ctx context.Context, profileID id.ProfileID, since time.Time) (Event, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+eventColumns+`
		   FROM registro_asistencia
		  WHERE perfil_id = $1 AND creado_en >= $2
		  ORDER BY creado_en DESC
		  LIMIT 1`,
		profileID.String(), since)

	e, err := scanEvent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, sentinel.ErrNotFound
		}
		return Event{}, fmt.Errorf("scan attendance event: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) History(ctx context.Context, profileID id.ProfileID, since time.Time, limit int) ([]Event, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+eventColumns+`
		   FROM registro_asistencia
		  WHERE perfil_id = $1 AND creado_en >= $2
		  ORDER BY creado_en DESC
		  LIMIT $3`,
		profileID.String(), since, limit)
	if err != nil {
		return nil, fmt.Errorf("query attendance history: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan attendance event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
