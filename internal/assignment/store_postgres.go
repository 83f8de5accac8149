package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"geoasistencia/internal/profile"
	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
	txcontext "geoasistencia/pkg/platform/tx"
)

// PostgresStore persists assignments in the asignacion_laboral table, keyed
// by the (perfil_id, geocerca_id) pair.
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

func (s *PostgresStore) Create(ctx context.Context, a Assignment) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO asignacion_laboral (perfil_id, geocerca_id, hora_entrada, hora_salida, creado_en)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ProfileID.String(), a.GeofenceID.String(), a.Schedule.Entry, a.Schedule.Exit, a.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation: the pair already exists
				return sentinel.ErrConflict
			case "23503": // foreign_key_violation: profile or zone is gone
				return sentinel.ErrNotFound
			}
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, profileID id.ProfileID, zoneID id.GeofenceID) (Assignment, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT perfil_id, geocerca_id, hora_entrada, hora_salida, creado_en
		   FROM asignacion_laboral
		  WHERE perfil_id = $1 AND geocerca_id = $2`,
		profileID.String(), zoneID.String())

	var (
		a          Assignment
		rawProfile uuid.UUID
		rawZone    uuid.UUID
	)
	err := row.Scan(&rawProfile, &rawZone, &a.Schedule.Entry, &a.Schedule.Exit, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assignment{}, sentinel.ErrNotFound
		}
		return Assignment{}, fmt.Errorf("scan assignment: %w", err)
	}
	a.ProfileID = id.ProfileID(rawProfile)
	a.GeofenceID = id.GeofenceID(rawZone)
	return a, nil
}

func (s *PostgresStore) Remove(ctx context.Context, profileID id.ProfileID, zoneID id.GeofenceID) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM asignacion_laboral WHERE perfil_id = $1 AND geocerca_id = $2`,
		profileID.String(), zoneID.String())
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListZonesForProfile joins the profile's assignments with their geofences.
// Centers come back as plain lat/lon so the evaluator owns the membership
// decision; the geography column is only a storage format here.
func (s *PostgresStore) ListZonesForProfile(ctx context.Context, profileID id.ProfileID) ([]ZoneSchedule, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT g.id, g.sede_id, g.nombre,
		        ST_Y(g.punto_central::geometry), ST_X(g.punto_central::geometry),
		        g.radio_metros, g.creado_en,
		        a.hora_entrada, a.hora_salida
		   FROM asignacion_laboral a
		   JOIN geocerca g ON g.id = a.geocerca_id
		  WHERE a.perfil_id = $1
		  ORDER BY g.nombre`,
		profileID.String())
	if err != nil {
		return nil, fmt.Errorf("query assigned zones: %w", err)
	}
	defer rows.Close()

	var out []ZoneSchedule
	for rows.Next() {
		var (
			zs      ZoneSchedule
			rawID   uuid.UUID
			rawSite uuid.UUID
		)
		err := rows.Scan(&rawID, &rawSite, &zs.Zone.Name,
			&zs.Zone.Center.Latitude, &zs.Zone.Center.Longitude,
			&zs.Zone.RadiusMeters, &zs.Zone.CreatedAt,
			&zs.Schedule.Entry, &zs.Schedule.Exit)
		if err != nil {
			return nil, fmt.Errorf("scan assigned zone: %w", err)
		}
		zs.Zone.ID = id.GeofenceID(rawID)
		zs.Zone.SiteID = id.SiteID(rawSite)
		out = append(out, zs)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListAssigned(ctx context.Context, zoneID id.GeofenceID) ([]AssignedProfile, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT p.id, p.nombre, p.codigo_empleado, p.cargo,
		        a.hora_entrada, a.hora_salida, a.creado_en
		   FROM asignacion_laboral a
		   JOIN perfil p ON p.id = a.perfil_id
		  WHERE a.geocerca_id = $1
		  ORDER BY p.nombre`,
		zoneID.String())
	if err != nil {
		return nil, fmt.Errorf("query assigned profiles: %w", err)
	}
	defer rows.Close()

	var out []AssignedProfile
	for rows.Next() {
		var (
			ap    AssignedProfile
			rawID uuid.UUID
		)
		err := rows.Scan(&rawID, &ap.Profile.PersonName, &ap.Profile.EmployeeCode, &ap.Profile.JobTitle,
			&ap.Schedule.Entry, &ap.Schedule.Exit, &ap.AssignedAt)
		if err != nil {
			return nil, fmt.Errorf("scan assigned profile: %w", err)
		}
		ap.Profile.ID = id.ProfileID(rawID)
		out = append(out, ap)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListAvailable(ctx context.Context, zoneID id.GeofenceID) ([]profile.Summary, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT p.id, p.nombre, p.codigo_empleado, p.cargo
		   FROM perfil p
		  WHERE p.estado = 'ACTIVE'
		    AND NOT EXISTS (
		        SELECT 1 FROM asignacion_laboral a
		         WHERE a.perfil_id = p.id AND a.geocerca_id = $1)
		  ORDER BY p.nombre`,
		zoneID.String())
	if err != nil {
		return nil, fmt.Errorf("query available profiles: %w", err)
	}
	defer rows.Close()

	var out []profile.Summary
	for rows.Next() {
		var (
			sum   profile.Summary
			rawID uuid.UUID
		)
		if err := rows.Scan(&rawID, &sum.PersonName, &sum.EmployeeCode, &sum.JobTitle); err != nil {
			return nil, fmt.Errorf("scan available profile: %w", err)
		}
		sum.ID = id.ProfileID(rawID)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ExistsForZone(ctx context.Context, zoneID id.GeofenceID) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM asignacion_laboral WHERE geocerca_id = $1)`,
		zoneID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query assignments for zone: %w", err)
	}
	return exists, nil
}
