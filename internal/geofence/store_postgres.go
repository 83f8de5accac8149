package geofence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
	txcontext "geoasistencia/pkg/platform/tx"
)

// PostgresStore persists sites and zones in the sede and geocerca tables.
// Zone centers are stored as geography(Point,4326); reads project them back
// to plain lat/lon because membership is decided by the evaluator, not SQL.
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

func (s *PostgresStore) CreateSite(ctx context.Context, site Site) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO sede (id, nombre, direccion, creado_en) VALUES ($1, $2, $3, $4)`,
		site.ID.String(), site.Name, site.Address, site.CreatedAt)
	return translateWriteErr(err, "insert site")
}

func (s *PostgresStore) FindSite(ctx context.Context, siteID id.SiteID) (Site, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, nombre, direccion, creado_en FROM sede WHERE id = $1`, siteID.String())

	var (
		site  Site
		rawID uuid.UUID
	)
	if err := row.Scan(&rawID, &site.Name, &site.Address, &site.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Site{}, sentinel.ErrNotFound
		}
		return Site{}, fmt.Errorf("scan site: %w", err)
	}
	site.ID = id.SiteID(rawID)
	return site, nil
}

func (s *PostgresStore) UpdateSite(ctx context.Context, site Site) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE sede SET nombre = $2, direccion = $3 WHERE id = $1`,
		site.ID.String(), site.Name, site.Address)
	return affectedOne(res, translateWriteErr(err, "update site"))
}

func (s *PostgresStore) DeleteSite(ctx context.Context, siteID id.SiteID) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM sede WHERE id = $1`, siteID.String())
	return affectedOne(res, translateWriteErr(err, "delete site"))
}

func (s *PostgresStore) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id, nombre, direccion, creado_en FROM sede ORDER BY nombre`)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	var out []Site
	for rows.Next() {
		var (
			site  Site
			rawID uuid.UUID
		)
		if err := rows.Scan(&rawID, &site.Name, &site.Address, &site.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		site.ID = id.SiteID(rawID)
		out = append(out, site)
	}
	return out, rows.Err()
}

func (s *PostgresStore) HasZones(ctx context.Context, siteID id.SiteID) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM geocerca WHERE sede_id = $1)`, siteID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query zones for site: %w", err)
	}
	return exists, nil
}

const zoneColumns = `id, sede_id, nombre,
        ST_Y(punto_central::geometry), ST_X(punto_central::geometry),
        radio_metros, creado_en`

func (s *PostgresStore) CreateZone(ctx context.Context, zone GeoFence) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO geocerca (id, sede_id, nombre, punto_central, radio_metros, creado_en)
		 VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7)`,
		zone.ID.String(), zone.SiteID.String(), zone.Name,
		zone.Center.Longitude, zone.Center.Latitude, zone.RadiusMeters, zone.CreatedAt)
	return translateWriteErr(err, "insert zone")
}

func (s *PostgresStore) FindZone(ctx context.Context, zoneID id.GeofenceID) (GeoFence, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+zoneColumns+` FROM geocerca WHERE id = $1`, zoneID.String())
	return scanZoneRow(row)
}

func (s *PostgresStore) UpdateZone(ctx context.Context, zone GeoFence) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE geocerca
		    SET nombre = $2,
		        punto_central = ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography,
		        radio_metros = $5
		  WHERE id = $1`,
		zone.ID.String(), zone.Name,
		zone.Center.Longitude, zone.Center.Latitude, zone.RadiusMeters)
	return affectedOne(res, translateWriteErr(err, "update zone"))
}

func (s *PostgresStore) DeleteZone(ctx context.Context, zoneID id.GeofenceID) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM geocerca WHERE id = $1`, zoneID.String())
	return affectedOne(res, translateWriteErr(err, "delete zone"))
}

func (s *PostgresStore) ListZonesBySite(ctx context.Context, siteID id.SiteID) ([]GeoFence, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+zoneColumns+` FROM geocerca WHERE sede_id = $1 ORDER BY nombre`,
		siteID.String())
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()

	var out []GeoFence
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, zone)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanZone(row rowScanner) (GeoFence, error) {
	var (
		zone    GeoFence
		rawID   uuid.UUID
		rawSite uuid.UUID
	)
	err := row.Scan(&rawID, &rawSite, &zone.Name,
		&zone.Center.Latitude, &zone.Center.Longitude,
		&zone.RadiusMeters, &zone.CreatedAt)
	if err != nil {
		return GeoFence{}, fmt.Errorf("scan zone: %w", err)
	}
	zone.ID = id.GeofenceID(rawID)
	zone.SiteID = id.SiteID(rawSite)
	return zone, nil
}

func scanZoneRow(row *sql.Row) (GeoFence, error) {
	zone, err := scanZone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GeoFence{}, sentinel.ErrNotFound
		}
		return GeoFence{}, err
	}
	return zone, nil
}

func translateWriteErr(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return sentinel.ErrConflict
		case "23503": // foreign_key_violation
			return sentinel.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
