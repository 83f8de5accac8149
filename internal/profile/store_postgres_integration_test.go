//go:build integration

package profile_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"geoasistencia/internal/presence"
	"geoasistencia/internal/profile"
	"geoasistencia/internal/storage"
	id "geoasistencia/pkg/domain"
	"geoasistencia/pkg/platform/sentinel"
	"geoasistencia/pkg/testutil/containers"
)

type ProfilePostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *profile.PostgresStore
	runner   *storage.PostgresRunner
}

func TestProfilePostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProfilePostgresSuite))
}

func (s *ProfilePostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = profile.NewPostgres(s.postgres.DB)
	s.runner = storage.NewPostgresRunner(s.postgres.DB)
}

func (s *ProfilePostgresSuite) SetupTest() {
	err := s.postgres.Truncate(context.Background(), "perfil")
	s.Require().NoError(err)
}

func newTestProfile(code string) profile.Profile {
	return profile.Profile{
		ID:             id.NewProfileID(),
		PersonName:     "Maria Soto",
		EmployeeCode:   code,
		CredentialHash: "$2a$10$hash",
		Role:           profile.RoleUser,
		Status:         profile.StatusActive,
		Presence:       presence.Out,
		JobTitle:       "Operations",
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

func (s *ProfilePostgresSuite) TestRoundTrip() {
	ctx := context.Background()
	p := newTestProfile("EMP-100")

	s.Require().NoError(s.store.Create(ctx, p))

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, found.ID)
	s.Equal(p.EmployeeCode, found.EmployeeCode)
	s.Equal(presence.Out, found.Presence)
	s.Equal(profile.StatusActive, found.Status)

	s.Require().NoError(s.store.UpdatePresence(ctx, p.ID, presence.In))
	found, err = s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(presence.In, found.Presence)

	s.Require().NoError(s.store.UpdateStatus(ctx, p.ID, profile.StatusSuspended))
	s.Require().NoError(s.store.UpdateRole(ctx, p.ID, profile.RoleAdmin))
	found, err = s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(profile.StatusSuspended, found.Status)
	s.Equal(profile.RoleAdmin, found.Role)
}

func (s *ProfilePostgresSuite) TestDuplicateEmployeeCode() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, newTestProfile("EMP-200")))

	err := s.store.Create(ctx, newTestProfile("EMP-200"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *ProfilePostgresSuite) TestUnknownProfile() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, id.NewProfileID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.UpdateStatus(ctx, id.NewProfileID(), profile.StatusSuspended)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ProfilePostgresSuite) TestForUpdateRequiresTransaction() {
	_, err := s.store.FindByIDForUpdate(context.Background(), id.NewProfileID())
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

// TestForUpdateSerializesRacingCheckIns runs two transactions that both try
// to flip the same profile from OUT to IN under the row lock. Exactly one
// may win; the loser must observe the committed IN state.
func (s *ProfilePostgresSuite) TestForUpdateSerializesRacingCheckIns() {
	ctx := context.Background()
	p := newTestProfile("EMP-300")
	s.Require().NoError(s.store.Create(ctx, p))

	const racers = 2
	var wins, losses atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
				locked, err := s.store.FindByIDForUpdate(txCtx, p.ID)
				if err != nil {
					return err
				}
				next, err := presence.Transition(locked.Presence, presence.Entrada)
				if err != nil {
					return err
				}
				// Hold the lock long enough for the other racer to block.
				time.Sleep(50 * time.Millisecond)
				return s.store.UpdatePresence(txCtx, p.ID, next)
			})
			if err == nil {
				wins.Add(1)
			} else {
				losses.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one check-in should win")
	s.Equal(int32(1), losses.Load(), "the other should conflict on the committed state")

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(presence.In, found.Presence)
}

func (s *ProfilePostgresSuite) TestRollbackLeavesRowUntouched() {
	ctx := context.Background()
	p := newTestProfile("EMP-400")
	s.Require().NoError(s.store.Create(ctx, p))

	boom := errors.New("boom")
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpdatePresence(txCtx, p.ID, presence.In); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(presence.Out, found.Presence)
}
