// Package service runs governance instances: one per declared event, each with its own
// donor ledger, proposal table and auto-execution rule.
package service

import (
	"context"
	"errors"
	"log/slog"

	"aegis/internal/governance/metrics"
	"aegis/internal/governance/models"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	audit "aegis/pkg/platform/audit"
	"aegis/pkg/platform/sentinel"
	"aegis/pkg/requestcontext"
)

// Store holds instances. Execute serializes validate and mutate per instance.
type Store interface {
	Create(ctx context.Context, instance *models.Instance) error
	Get(ctx context.Context, instanceID id.InstanceID) (*models.Instance, error)
	List(ctx context.Context) ([]*models.Instance, error)
	Delete(ctx context.Context, instanceID id.InstanceID) error
	Execute(ctx context.Context, instanceID id.InstanceID, validate func(*models.Instance) error, mutate func(*models.Instance)) (*models.Instance, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	newID          func() id.InstanceID
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

// WithIDGenerator overrides instance id allocation.
func WithIDGenerator(gen func() id.InstanceID) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		newID:  id.NewInstanceID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInstance allocates a governance instance bound to event and owned by creator.
func (s *Service) CreateInstance(ctx context.Context, creator id.Identity, event id.EventRecord) (*models.Instance, error) {
	instance, err := models.NewInstance(s.newID(), creator, event, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, instance); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "instance already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create instance")
	}
	if s.metrics != nil {
		s.metrics.InstancesCreated.Inc()
	}
	s.emit(ctx, audit.EventInstanceCreated, creator, instance.ID, func(e *audit.Event) {
		e.Reason = event.Severity
		e.Subject = event.EventType
	})
	s.logger.InfoContext(ctx, "governance instance created",
		"request_id", requestcontext.RequestID(ctx),
		"instance_id", instance.ID,
		"event_type", event.EventType,
		"severity", event.Severity,
	)
	return instance, nil
}

// Discard removes an instance. Only the compensation path calls it.
func (s *Service) Discard(ctx context.Context, instanceID id.InstanceID) error {
	if err := s.store.Delete(ctx, instanceID); err != nil {
		return wrapStoreErr(err, "failed to discard instance")
	}
	if s.metrics != nil {
		s.metrics.InstancesDiscarded.Inc()
	}
	s.emit(ctx, audit.EventInstanceDiscarded, requestcontext.Caller(ctx), instanceID, nil)
	s.logger.WarnContext(ctx, "governance instance discarded",
		"request_id", requestcontext.RequestID(ctx),
		"instance_id", instanceID,
	)
	return nil
}

func (s *Service) ListInstances(ctx context.Context) ([]models.InstanceSummary, error) {
	instances, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list instances")
	}
	out := make([]models.InstanceSummary, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.Summary())
	}
	return out, nil
}

// Donate credits amount to the caller and the instance treasury. Amounts are not validated.
func (s *Service) Donate(ctx context.Context, instanceID id.InstanceID, caller id.Identity, amount int64) (string, error) {
	_, err := s.store.Execute(ctx, instanceID,
		func(i *models.Instance) error { return i.CanDonate(caller, amount) },
		func(i *models.Instance) { i.ApplyDonation(caller, amount) },
	)
	if err != nil {
		return "", wrapStoreErr(err, "failed to record donation")
	}
	if s.metrics != nil {
		s.metrics.IncrementDonation(amount)
	}
	s.emit(ctx, audit.EventDonationReceived, caller, instanceID, func(e *audit.Event) {
		e.Amount = amount
	})
	return models.DonationMessage(amount), nil
}

// SubmitProposal is open to any identified caller, donor or not.
func (s *Service) SubmitProposal(ctx context.Context, instanceID id.InstanceID, caller id.Identity, draft models.ProposalDraft) (id.ProposalID, error) {
	now := requestcontext.Now(ctx)
	var pid id.ProposalID
	_, err := s.store.Execute(ctx, instanceID,
		func(i *models.Instance) error { return i.CanSubmit(caller, draft) },
		func(i *models.Instance) { pid = i.ApplySubmit(caller, draft, now) },
	)
	if err != nil {
		return 0, wrapStoreErr(err, "failed to submit proposal")
	}
	if s.metrics != nil {
		s.metrics.Proposals.Inc()
	}
	s.emit(ctx, audit.EventProposalSubmitted, caller, instanceID, func(e *audit.Event) {
		e.Subject = string(draft.Recipient)
		e.Amount = draft.AmountRequested
	})
	return pid, nil
}

// Vote records a donor's vote and reports whether it executed the proposal.
func (s *Service) Vote(ctx context.Context, instanceID id.InstanceID, caller id.Identity, pid id.ProposalID, inFavor bool) (*models.VoteOutcome, error) {
	now := requestcontext.Now(ctx)
	var outcome models.VoteOutcome
	_, err := s.store.Execute(ctx, instanceID,
		func(i *models.Instance) error { return i.CanVote(caller, pid) },
		func(i *models.Instance) { outcome = i.ApplyVote(caller, pid, inFavor, now) },
	)
	if err != nil {
		s.logger.WarnContext(ctx, "vote rejected",
			"request_id", requestcontext.RequestID(ctx),
			"instance_id", instanceID,
			"proposal_id", pid,
			"caller", caller,
			"error", err,
		)
		return nil, wrapStoreErr(err, "failed to record vote")
	}

	if s.metrics != nil {
		s.metrics.IncrementVote(inFavor)
	}
	decision := "against"
	if inFavor {
		decision = "for"
	}
	s.emit(ctx, audit.EventVoteCast, caller, instanceID, func(e *audit.Event) {
		e.Subject = pid.String()
		e.Decision = decision
	})
	if outcome.Executed {
		if s.metrics != nil {
			s.metrics.IncrementExecuted(outcome.Proposal.AmountRequested)
		}
		s.emit(ctx, audit.EventProposalExecuted, caller, instanceID, func(e *audit.Event) {
			e.Subject = string(outcome.Proposal.Recipient)
			e.Amount = outcome.Proposal.AmountRequested
			e.Reason = pid.String()
		})
		s.logger.InfoContext(ctx, "proposal executed",
			"request_id", requestcontext.RequestID(ctx),
			"instance_id", instanceID,
			"proposal_id", pid,
			"amount", outcome.Proposal.AmountRequested,
			"recipient", outcome.Proposal.Recipient,
		)
	}
	return &outcome, nil
}

func (s *Service) GetEventDetails(ctx context.Context, instanceID id.InstanceID) (id.EventRecord, error) {
	inst, err := s.get(ctx, instanceID)
	if err != nil {
		return id.EventRecord{}, err
	}
	return inst.Event, nil
}

func (s *Service) GetAllProposals(ctx context.Context, instanceID id.InstanceID) ([]models.Proposal, error) {
	inst, err := s.get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return inst.AllProposals(), nil
}

func (s *Service) ListDonors(ctx context.Context, instanceID id.InstanceID) ([]models.Donor, error) {
	inst, err := s.get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return inst.Donors(), nil
}

func (s *Service) GetInstance(ctx context.Context, instanceID id.InstanceID) (*models.InstanceSummary, error) {
	inst, err := s.get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	summary := inst.Summary()
	return &summary, nil
}

func (s *Service) get(ctx context.Context, instanceID id.InstanceID) (*models.Instance, error) {
	inst, err := s.store.Get(ctx, instanceID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load instance")
	}
	return inst, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, actor id.Identity, instanceID id.InstanceID, fill func(*audit.Event)) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(action, actor)
	event.InstanceID = instanceID
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

func wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "instance not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "instance was modified concurrently, retry")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
