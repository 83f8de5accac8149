package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"geoasistencia/internal/audit"
	"geoasistencia/internal/storage"
	id "geoasistencia/pkg/domain"
	dErrors "geoasistencia/pkg/domain-errors"
	"geoasistencia/pkg/requestcontext"
)

type ProfileServiceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service

	adminID  id.ProfileID
	workerID id.ProfileID
}

func TestProfileServiceSuite(t *testing.T) {
	suite.Run(t, new(ProfileServiceSuite))
}

func (s *ProfileServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore(s.store)

	runner := storage.NewMemoryRunner(s.store, s.auditStore)
	auditor := audit.NewService(s.auditStore, nil)
	s.service = NewService(s.store, auditor, runner)

	s.adminID = id.NewProfileID()
	s.workerID = id.NewProfileID()
	s.ctx = requestcontext.WithProfileID(context.Background(), s.adminID)

	s.Require().NoError(s.store.Create(s.ctx, Profile{
		ID:           s.adminID,
		PersonName:   "Alicia Admin",
		EmployeeCode: "EMP-001",
		Role:         RoleAdmin,
		Status:       StatusActive,
		CreatedAt:    time.Now(),
	}))
	s.Require().NoError(s.store.Create(s.ctx, Profile{
		ID:           s.workerID,
		PersonName:   "Bruno Bodega",
		EmployeeCode: "EMP-002",
		Role:         RoleUser,
		Status:       StatusActive,
		JobTitle:     "Operario",
		CreatedAt:    time.Now(),
	}))
}

func (s *ProfileServiceSuite) statusOf(profileID id.ProfileID) Status {
	p, err := s.store.FindByID(s.ctx, profileID)
	s.Require().NoError(err)
	return p.Status
}

func (s *ProfileServiceSuite) TestStatusTransitions() {
	s.Run("suspends an active profile with a before/after record", func() {
		s.SetupTest()
		s.Require().NoError(s.service.Suspend(s.ctx, s.workerID))
		s.Equal(StatusSuspended, s.statusOf(s.workerID))

		page, err := s.auditStore.List(s.ctx, 10, audit.Cursor{}, false)
		s.Require().NoError(err)
		s.Require().Len(page, 1)
		s.Equal(audit.ActionStatusChange, page[0].Action)
		s.Equal(audit.TablePerfil, page[0].Table)
		s.Equal("EMP-001", page[0].ActorEmployeeCode)
	})

	s.Run("reactivates a suspended profile", func() {
		s.SetupTest()
		s.Require().NoError(s.service.Suspend(s.ctx, s.workerID))
		s.Require().NoError(s.service.Reactivate(s.ctx, s.workerID))
		s.Equal(StatusActive, s.statusOf(s.workerID))
		s.Equal(2, s.auditStore.Count())
	})

	s.Run("rejects a redundant transition", func() {
		s.SetupTest()
		err := s.service.Reactivate(s.ctx, s.workerID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Zero(s.auditStore.Count())
	})

	s.Run("rejects transitions on a deleted profile", func() {
		s.SetupTest()
		s.Require().NoError(s.service.SoftDelete(s.ctx, s.workerID))

		err := s.service.Reactivate(s.ctx, s.workerID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("returns NotFound for an unknown profile", func() {
		s.SetupTest()
		err := s.service.Suspend(s.ctx, id.NewProfileID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProfileServiceSuite) TestSoftDelete() {
	s.Run("marks the profile deleted and keeps the row", func() {
		s.SetupTest()
		s.Require().NoError(s.service.SoftDelete(s.ctx, s.workerID))
		s.Equal(StatusDeleted, s.statusOf(s.workerID))

		page, err := s.auditStore.List(s.ctx, 10, audit.Cursor{}, false)
		s.Require().NoError(err)
		s.Equal(audit.ActionDelete, page[0].Action)
	})

	s.Run("rejects deleting twice", func() {
		s.SetupTest()
		s.Require().NoError(s.service.SoftDelete(s.ctx, s.workerID))

		err := s.service.SoftDelete(s.ctx, s.workerID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(1, s.auditStore.Count())
	})
}

func (s *ProfileServiceSuite) TestChangeRole() {
	s.Run("promotes a user to admin with a role change record", func() {
		s.SetupTest()
		s.Require().NoError(s.service.ChangeRole(s.ctx, s.workerID, "admin"))

		p, err := s.store.FindByID(s.ctx, s.workerID)
		s.Require().NoError(err)
		s.Equal(RoleAdmin, p.Role)

		page, err := s.auditStore.List(s.ctx, 10, audit.Cursor{}, false)
		s.Require().NoError(err)
		s.Equal(audit.ActionRoleChange, page[0].Action)
	})

	s.Run("rejects an unknown role value", func() {
		s.SetupTest()
		err := s.service.ChangeRole(s.ctx, s.workerID, "supervisor")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects a redundant role change", func() {
		s.SetupTest()
		err := s.service.ChangeRole(s.ctx, s.workerID, "user")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Zero(s.auditStore.Count())
	})
}
