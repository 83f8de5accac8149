package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"geoasistencia/internal/presence"
	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
	txcontext "geoasistencia/pkg/platform/tx"
)

// PostgresStore persists profiles in the perfil table. Presence is stored as
// the en_sede boolean, matching the ENTRADA=true / SALIDA=false convention.
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

const profileColumns = `id, nombre, codigo_empleado, credencial_hash, rol, estado, en_sede, cargo, creado_en`

func scanProfile(row *sql.Row) (Profile, error) {
	var (
		p      Profile
		rawID  uuid.UUID
		enSede bool
	)
	err := row.Scan(&rawID, &p.PersonName, &p.EmployeeCode, &p.CredentialHash,
		&p.Role, &p.Status, &enSede, &p.JobTitle, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, sentinel.ErrNotFound
		}
		return Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	p.ID = id.ProfileID(rawID)
	p.Presence = presenceFromBool(enSede)
	return p, nil
}

func presenceFromBool(enSede bool) presence.Presence {
	if enSede {
		return presence.In
	}
	return presence.Out
}

func presenceToBool(p presence.Presence) bool {
	return p == presence.In
}

func (s *PostgresStore) Create(ctx context.Context, p Profile) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO perfil (`+profileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID.String(), p.PersonName, p.EmployeeCode, p.CredentialHash,
		p.Role, p.Status, presenceToBool(p.Presence), p.JobTitle, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, profileID id.ProfileID) (Profile, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM perfil WHERE id = $1`, profileID.String())
	return scanProfile(row)
}

// FindByIDForUpdate reads the profile under a row lock. Racing check-ins for
// the same profile serialize here; the second transaction re-reads presence
// only after the first commits, so exactly one of two racing ENTRADAs wins.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, profileID id.ProfileID) (Profile, error) {
	if _, ok := txcontext.From(ctx); !ok {
		return Profile{}, sentinel.ErrInvalidState
	}
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM perfil WHERE id = $1 FOR UPDATE`, profileID.String())
	return scanProfile(row)
}

func (s *PostgresStore) UpdatePresence(ctx context.Context, profileID id.ProfileID, p presence.Presence) error {
	return s.updateColumn(ctx, `UPDATE perfil SET en_sede = $2 WHERE id = $1`,
		profileID.String(), presenceToBool(p))
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, profileID id.ProfileID, status Status) error {
	return s.updateColumn(ctx, `UPDATE perfil SET estado = $2 WHERE id = $1`,
		profileID.String(), string(status))
}

func (s *PostgresStore) UpdateRole(ctx context.Context, profileID id.ProfileID, role Role) error {
	return s.updateColumn(ctx, `UPDATE perfil SET rol = $2 WHERE id = $1`,
		profileID.String(), string(role))
}

func (s *PostgresStore) updateColumn(ctx context.Context, query string, args ...any) error {
	res, err := s.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// isUniqueViolation checks for the postgres unique_violation error code.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
