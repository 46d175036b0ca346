// Package service implements the treasury operations: vault funding, funder management and
// the severity-scaled initial payout released for each declared event.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"aegis/internal/payout"
	"aegis/internal/treasury/metrics"
	"aegis/internal/treasury/models"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	audit "aegis/pkg/platform/audit"
	"aegis/pkg/platform/sentinel"
	"aegis/pkg/requestcontext"
)

// Store holds the vault. Execute runs validate then mutate under the vault lock and commits
// only when validate returns nil.
type Store interface {
	Load(ctx context.Context) (*models.Vault, error)
	Execute(ctx context.Context, validate func(*models.Vault) error, mutate func(*models.Vault)) (*models.Vault, error)
	ListPayouts(ctx context.Context) ([]models.PayoutRecord, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FundVault deposits amount on behalf of an authorized funder.
func (s *Service) FundVault(ctx context.Context, caller id.Identity, amount int64) (*models.FundResult, error) {
	start := time.Now()
	defer s.observe("fund_vault", start)

	v, err := s.store.Execute(ctx,
		func(v *models.Vault) error { return v.CanFund(caller, amount) },
		func(v *models.Vault) { v.ApplyFund(amount) },
	)
	if err != nil {
		s.logger.WarnContext(ctx, "vault funding rejected",
			"request_id", requestcontext.RequestID(ctx),
			"caller", caller,
			"amount", amount,
			"error", err,
		)
		return nil, wrapStoreErr(err, "failed to fund vault")
	}

	if s.metrics != nil {
		s.metrics.IncrementFunded(amount)
		s.metrics.ObserveBalance(v.Balance)
	}
	s.emit(ctx, audit.EventVaultFunded, caller, func(e *audit.Event) {
		e.Amount = amount
	})
	s.logger.InfoContext(ctx, "vault funded",
		"request_id", requestcontext.RequestID(ctx),
		"caller", caller,
		"amount", amount,
		"balance", v.Balance,
	)
	return models.NewFundResult(amount, v.Balance), nil
}

// ReleaseInitialFunding pays the severity-scaled amount for event to target. Only the
// factory may call it. A zero payout succeeds without touching the balance.
func (s *Service) ReleaseInitialFunding(ctx context.Context, caller, target id.Identity, event id.EventRecord) (*models.ReleaseResult, error) {
	start := time.Now()
	defer s.observe("release_initial_funding", start)

	amount := payout.For(event.Severity)
	now := requestcontext.Now(ctx)
	v, err := s.store.Execute(ctx,
		func(v *models.Vault) error { return v.CanRelease(caller, amount) },
		func(v *models.Vault) { v.ApplyRelease(target, event, amount, now) },
	)
	if err != nil {
		code := dErrors.CodeOf(err)
		if s.metrics != nil {
			s.metrics.IncrementRejected(string(code))
		}
		s.emit(ctx, audit.EventPayoutRejected, caller, func(e *audit.Event) {
			e.Subject = string(target)
			e.Amount = amount
			e.Decision = "rejected"
			e.Reason = string(code)
		})
		s.logger.WarnContext(ctx, "initial funding rejected",
			"request_id", requestcontext.RequestID(ctx),
			"caller", caller,
			"target", target,
			"severity", event.Severity,
			"payout", amount,
			"error", err,
		)
		return nil, wrapStoreErr(err, "failed to release initial funding")
	}

	if s.metrics != nil {
		s.metrics.IncrementReleased(event.Severity, amount)
		s.metrics.ObserveBalance(v.Balance)
	}
	action := audit.EventPayoutReleased
	if amount == 0 {
		action = audit.EventPayoutSkipped
	}
	s.emit(ctx, action, caller, func(e *audit.Event) {
		e.Subject = string(target)
		e.Amount = amount
		e.Decision = "released"
		e.Reason = event.Severity
	})
	s.logger.InfoContext(ctx, "initial funding processed",
		"request_id", requestcontext.RequestID(ctx),
		"target", target,
		"event_type", event.EventType,
		"severity", event.Severity,
		"payout", amount,
		"balance", v.Balance,
	)
	return models.NewReleaseResult(target, event.Severity, amount, v.Balance), nil
}

// AddFunder authorizes identity to fund the vault. Re-adding an existing funder succeeds.
func (s *Service) AddFunder(ctx context.Context, caller, identity id.Identity) (*models.AddFunderResult, error) {
	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "funder identity is required")
	}
	var added bool
	_, err := s.store.Execute(ctx,
		func(v *models.Vault) error { return v.CanAddFunder(caller) },
		func(v *models.Vault) { added = v.ApplyAddFunder(identity) },
	)
	if err != nil {
		s.logger.WarnContext(ctx, "add funder rejected",
			"request_id", requestcontext.RequestID(ctx),
			"caller", caller,
			"funder", identity,
			"error", err,
		)
		return nil, wrapStoreErr(err, "failed to add funder")
	}
	if added {
		s.emit(ctx, audit.EventFunderAdded, caller, func(e *audit.Event) {
			e.Subject = string(identity)
		})
	}
	return models.NewAddFunderResult(identity, added), nil
}

// GetTotalLiquidity is an unauthenticated read.
func (s *Service) GetTotalLiquidity(ctx context.Context) (int64, error) {
	v, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return v.Balance, nil
}

// GetAuthorizedFunders is an unauthenticated read, in grant order.
func (s *Service) GetAuthorizedFunders(ctx context.Context) ([]id.Identity, error) {
	v, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return v.Funders(), nil
}

func (s *Service) ListPayouts(ctx context.Context) ([]models.PayoutRecord, error) {
	payouts, err := s.store.ListPayouts(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payouts")
	}
	return payouts, nil
}

func (s *Service) Status(ctx context.Context) (*models.Status, error) {
	v, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	status := v.Status()
	return &status, nil
}

func (s *Service) load(ctx context.Context) (*models.Vault, error) {
	v, err := s.store.Load(ctx)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load vault")
	}
	return v, nil
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start)
	}
}

// emit publishes an audit event. Failures are logged; the state change already committed.
func (s *Service) emit(ctx context.Context, action audit.AuditEvent, actor id.Identity, fill func(*audit.Event)) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(action, actor)
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if fill != nil {
		fill(&event)
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", event.RequestID,
			"action", event.Action,
			"error", err,
		)
	}
}

// wrapStoreErr passes domain errors through and maps store sentinels.
func wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "vault not initialized")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
