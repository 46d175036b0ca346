//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aegis/internal/treasury/models"
	"aegis/internal/treasury/store"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	"aegis/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "treasury_payouts", "treasury_vault"))
	s.Require().NoError(s.store.Bootstrap(ctx, "factory", "funder"))
}

func (s *PostgresStoreSuite) TestBootstrapIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.store.Bootstrap(ctx, "factory", "funder", "funder-2"))

	v, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(id.Identity("factory"), v.Factory())
	s.Equal([]id.Identity{"funder", "funder-2"}, v.Funders())
}

func (s *PostgresStoreSuite) TestBootstrapRejectsFactoryChange() {
	ctx := context.Background()
	err := s.store.Bootstrap(ctx, "other-factory", "funder-3")
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	v, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(id.Identity("factory"), v.Factory(), "stored factory is untouched")
	s.NotContains(v.Funders(), id.Identity("funder-3"))
}

// TestConcurrentReleasesNeverOverdraw verifies FOR UPDATE serializes releases so the
// balance check and debit cannot interleave.
func (s *PostgresStoreSuite) TestConcurrentReleasesNeverOverdraw() {
	ctx := context.Background()
	_, err := s.store.Execute(ctx,
		func(v *models.Vault) error { return v.CanFund("funder", 1_000_000) },
		func(v *models.Vault) { v.ApplyFund(1_000_000) },
	)
	s.Require().NoError(err)

	const goroutines = 10
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx,
				func(v *models.Vault) error { return v.CanRelease("factory", 500_000) },
				func(v *models.Vault) {
					v.ApplyRelease("instance", id.EventRecord{EventType: "Flood", Severity: "High"}, 500_000, time.Now())
				},
			)
			switch {
			case err == nil:
				succeeded.Add(1)
			case dErrors.HasCode(err, dErrors.CodeInsufficientLiquidity):
				rejected.Add(1)
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(2), succeeded.Load())
	s.Equal(int32(goroutines-2), rejected.Load())

	v, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Zero(v.Balance)
	s.Equal(2, v.PayoutCount)

	payouts, err := s.store.ListPayouts(ctx)
	s.Require().NoError(err)
	s.Len(payouts, 2)
}
