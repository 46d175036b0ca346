package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"aegis/internal/treasury/metrics"
	"aegis/internal/treasury/models"
	"aegis/internal/treasury/store"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	audit "aegis/pkg/platform/audit"
	auditmemory "aegis/pkg/platform/audit/store/memory"
	"aegis/pkg/requestcontext"
)

const (
	factory id.Identity = "event-factory"
	funder  id.Identity = "funder-1"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemory
	audit   *auditmemory.InMemoryStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	s.store = store.NewInMemory(models.NewVault(factory, funder))
	s.audit = auditmemory.NewInMemoryStore()
	s.service = New(s.store,
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithAuditPublisher(auditAppender{s.audit}),
	)
}

func (s *ServiceSuite) balance() int64 {
	b, err := s.service.GetTotalLiquidity(s.ctx)
	s.Require().NoError(err)
	return b
}

func (s *ServiceSuite) TestFundVault() {
	s.Run("funder increases balance", func() {
		res, err := s.service.FundVault(s.ctx, funder, 3_000_000)
		s.Require().NoError(err)
		s.Equal(int64(3_000_000), res.NewBalance)
		s.Equal("Vault funded with 3000000. New balance: 3000000", res.Message)
	})

	s.Run("non-positive amount is invalid", func() {
		_, err := s.service.FundVault(s.ctx, funder, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("non-funder is unauthorized and balance is unchanged", func() {
		_, err := s.service.FundVault(s.ctx, "stranger", 10)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal(int64(3_000_000), s.balance())
	})

	s.Run("factory is not implicitly a funder", func() {
		_, err := s.service.FundVault(s.ctx, factory, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestFundVaultRefusesOverflow() {
	_, err := s.service.FundVault(s.ctx, funder, math.MaxInt64)
	s.Require().NoError(err)

	_, err = s.service.FundVault(s.ctx, funder, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	s.Equal(int64(math.MaxInt64), s.balance(), "balance never wraps negative")

	res, err := s.service.ReleaseInitialFunding(s.ctx, factory, "instance-1", id.EventRecord{EventType: "Quake", Severity: "Critical"})
	s.Require().NoError(err)
	s.Equal(int64(math.MaxInt64-2_000_000), res.NewBalance)
}

// TestPayoutScenario walks the documented release sequence from a 3,000,000 vault.
func (s *ServiceSuite) TestPayoutScenario() {
	_, err := s.service.FundVault(s.ctx, funder, 3_000_000)
	s.Require().NoError(err)

	steps := []struct {
		severity string
		payout   int64
		balance  int64
		code     dErrors.Code
	}{
		{"Critical", 2_000_000, 1_000_000, ""},
		{"High", 500_000, 500_000, ""},
		{"Medium", 50_000, 450_000, ""},
		{"Critical", 0, 450_000, dErrors.CodeInsufficientLiquidity},
	}
	for _, step := range steps {
		res, err := s.service.ReleaseInitialFunding(s.ctx, factory, "instance-a",
			id.EventRecord{EventType: "Quake", Severity: step.severity})
		if step.code != "" {
			s.True(dErrors.HasCode(err, step.code), "severity %s", step.severity)
		} else {
			s.Require().NoError(err)
			s.Equal(step.payout, res.Payout)
			s.Equal(step.balance, res.NewBalance)
		}
		s.Equal(step.balance, s.balance())
	}

	payouts, err := s.service.ListPayouts(s.ctx)
	s.Require().NoError(err)
	s.Len(payouts, 3)

	status, err := s.service.Status(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Status{Balance: 450_000, TotalPayouts: 2_550_000, PayoutCount: 3, FunderCount: 1}, *status)
}

func (s *ServiceSuite) TestReleaseInitialFunding() {
	s.Run("only the factory may release", func() {
		_, err := s.service.ReleaseInitialFunding(s.ctx, funder, "instance", id.EventRecord{Severity: "Medium"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown severity pays zero without liquidity", func() {
		res, err := s.service.ReleaseInitialFunding(s.ctx, factory, "instance", id.EventRecord{Severity: "Low"})
		s.Require().NoError(err)
		s.Zero(res.Payout)
		s.Equal("No payout triggered for severity Low", res.Message)
	})

	s.Run("severity matching is case-sensitive", func() {
		res, err := s.service.ReleaseInitialFunding(s.ctx, factory, "instance", id.EventRecord{Severity: "CRITICAL"})
		s.Require().NoError(err)
		s.Zero(res.Payout)
	})

	s.Run("rejections and skips are audited", func() {
		events, err := s.audit.ListAll(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(events, 3)
		s.Equal(string(audit.EventPayoutRejected), events[0].Action)
		s.Equal(string(dErrors.CodeUnauthorized), events[0].Reason)
		s.Equal(string(audit.EventPayoutSkipped), events[1].Action)
	})
}

func (s *ServiceSuite) TestAddFunder() {
	s.Run("factory adds a funder", func() {
		res, err := s.service.AddFunder(s.ctx, factory, "funder-2")
		s.Require().NoError(err)
		s.True(res.Added)
	})

	s.Run("re-adding is idempotent", func() {
		res, err := s.service.AddFunder(s.ctx, factory, "funder-2")
		s.Require().NoError(err)
		s.False(res.Added)

		funders, err := s.service.GetAuthorizedFunders(s.ctx)
		s.Require().NoError(err)
		s.Equal([]id.Identity{funder, "funder-2"}, funders)
	})

	s.Run("funders cannot add funders", func() {
		_, err := s.service.AddFunder(s.ctx, funder, "funder-3")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("empty identity is rejected", func() {
		_, err := s.service.AddFunder(s.ctx, factory, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("new funder can fund", func() {
		_, err := s.service.FundVault(s.ctx, "funder-2", 5)
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestStoreFailuresAreInternal() {
	svc := New(brokenStore{})

	_, err := svc.GetTotalLiquidity(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = svc.FundVault(s.ctx, funder, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = svc.ListPayouts(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

type auditAppender struct {
	store *auditmemory.InMemoryStore
}

func (a auditAppender) Emit(ctx context.Context, event audit.Event) error {
	return a.store.Append(ctx, event)
}

type brokenStore struct{}

var errDB = errors.New("connection refused")

func (brokenStore) Load(context.Context) (*models.Vault, error) { return nil, errDB }
func (brokenStore) Execute(context.Context, func(*models.Vault) error, func(*models.Vault)) (*models.Vault, error) {
	return nil, errDB
}
func (brokenStore) ListPayouts(context.Context) ([]models.PayoutRecord, error) { return nil, errDB }
