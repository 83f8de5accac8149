// Package profile holds the employee identity model and its audited admin
// mutations. The attendance engine touches only the presence flag; everything
// else changes here.
package profile

import (
	"context"
	"errors"

	"geoasistencia/internal/audit"
	id "geoasistencia/pkg/domain"
	dErrors "geoasistencia/pkg/domain-errors"
	"geoasistencia/pkg/platform/sentinel"
	"geoasistencia/pkg/requestcontext"
)

// Store is the profile persistence the admin service needs.
type Store interface {
	FindByID(ctx context.Context, profileID id.ProfileID) (Profile, error)
	UpdateStatus(ctx context.Context, profileID id.ProfileID, status Status) error
	UpdateRole(ctx context.Context, profileID id.ProfileID, role Role) error
}

// Runner opens the unit of work a mutation and its audit record share.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service owns the audited profile lifecycle mutations. Profiles are never
// hard deleted; SoftDelete is a terminal status transition.
type Service struct {
	store   Store
	auditor *audit.Service
	runner  Runner
}

func NewService(store Store, auditor *audit.Service, runner Runner) *Service {
	return &Service{store: store, auditor: auditor, runner: runner}
}

type statusDetail struct {
	Status string `json:"estado"`
}

type roleDetail struct {
	Role string `json:"rol"`
}

// snapshot is the ledger payload for a soft delete. The credential hash
// never enters the ledger.
type snapshot struct {
	ID           string `json:"id"`
	PersonName   string `json:"nombre"`
	EmployeeCode string `json:"codigo_empleado"`
	Role         string `json:"rol"`
	Status       string `json:"estado"`
	JobTitle     string `json:"cargo"`
}

func snapshotOf(p Profile) snapshot {
	return snapshot{
		ID:           p.ID.String(),
		PersonName:   p.PersonName,
		EmployeeCode: p.EmployeeCode,
		Role:         string(p.Role),
		Status:       string(p.Status),
		JobTitle:     p.JobTitle,
	}
}

func (s *Service) load(ctx context.Context, profileID id.ProfileID) (Profile, error) {
	p, err := s.store.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Profile{}, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

// Suspend moves an active profile to SUSPENDED.
func (s *Service) Suspend(ctx context.Context, profileID id.ProfileID) error {
	return s.setStatus(ctx, profileID, StatusSuspended)
}

// Reactivate moves a suspended profile back to ACTIVE.
func (s *Service) Reactivate(ctx context.Context, profileID id.ProfileID) error {
	return s.setStatus(ctx, profileID, StatusActive)
}

func (s *Service) setStatus(ctx context.Context, profileID id.ProfileID, next Status) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.load(ctx, profileID)
		if err != nil {
			return err
		}
		if p.Status == StatusDeleted {
			return dErrors.New(dErrors.CodeConflict, "profile is deleted")
		}
		if p.Status == next {
			return dErrors.New(dErrors.CodeConflict, "profile already has this status")
		}
		if err := s.store.UpdateStatus(ctx, profileID, next); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update status")
		}
		payload, err := audit.ChangeDetail(
			statusDetail{Status: string(p.Status)},
			statusDetail{Status: string(next)},
		)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TablePerfil, audit.ActionStatusChange, payload)
	})
}

// SoftDelete marks the profile DELETED. The row stays; the ledger keeps the
// final snapshot.
func (s *Service) SoftDelete(ctx context.Context, profileID id.ProfileID) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.load(ctx, profileID)
		if err != nil {
			return err
		}
		if p.Status == StatusDeleted {
			return dErrors.New(dErrors.CodeConflict, "profile is already deleted")
		}
		if err := s.store.UpdateStatus(ctx, profileID, StatusDeleted); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete profile")
		}
		payload, err := audit.DeletedDetail(snapshotOf(p))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TablePerfil, audit.ActionDelete, payload)
	})
}

// ChangeRole flips a profile between user and admin.
func (s *Service) ChangeRole(ctx context.Context, profileID id.ProfileID, raw string) error {
	var next Role
	switch Role(raw) {
	case RoleAdmin, RoleUser:
		next = Role(raw)
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "rol must be admin or user")
	}

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.load(ctx, profileID)
		if err != nil {
			return err
		}
		if p.Status == StatusDeleted {
			return dErrors.New(dErrors.CodeConflict, "profile is deleted")
		}
		if p.Role == next {
			return dErrors.New(dErrors.CodeConflict, "profile already has this role")
		}
		if err := s.store.UpdateRole(ctx, profileID, next); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update role")
		}
		payload, err := audit.ChangeDetail(
			roleDetail{Role: string(p.Role)},
			roleDetail{Role: string(next)},
		)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit detail")
		}
		return s.auditor.Append(ctx, requestcontext.ProfileID(ctx), audit.TablePerfil, audit.ActionRoleChange, payload)
	})
}
