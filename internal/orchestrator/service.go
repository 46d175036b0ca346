// Package orchestrator declares disaster events: it creates a governance instance per event
// and asks the treasury to release the instance's initial funding.
//
// The two steps are not atomic. By default an instance whose funding call fails is kept
// (unfunded) and the declaration reports the failure; WithCompensation discards it instead.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	gmodels "aegis/internal/governance/models"
	"aegis/internal/payout"
	tmodels "aegis/internal/treasury/models"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	audit "aegis/pkg/platform/audit"
	"aegis/pkg/requestcontext"
)

const tracerName = "aegis/orchestrator"

// GovernanceCreator allocates and, for compensation, discards governance instances.
type GovernanceCreator interface {
	CreateInstance(ctx context.Context, creator id.Identity, event id.EventRecord) (*gmodels.Instance, error)
	Discard(ctx context.Context, instanceID id.InstanceID) error
}

// TreasuryReleaser releases a severity-scaled payout to a target instance.
type TreasuryReleaser interface {
	ReleaseInitialFunding(ctx context.Context, caller, target id.Identity, event id.EventRecord) (*tmodels.ReleaseResult, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	governance     GovernanceCreator
	treasury       TreasuryReleaser
	factory        id.Identity
	declarations   *DeclarationLog
	logger         *slog.Logger
	auditPublisher AuditPublisher
	tracer         trace.Tracer
	compensate     bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithTracer replaces the tracer from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithCompensation discards the new instance when its funding call fails.
func WithCompensation(enabled bool) Option {
	return func(s *Service) {
		s.compensate = enabled
	}
}

// New wires the orchestrator. factory is the identity it presents to the treasury.
func New(governance GovernanceCreator, treasury TreasuryReleaser, factory id.Identity, opts ...Option) (*Service, error) {
	if governance == nil {
		return nil, errors.New("governance creator is required")
	}
	if treasury == nil {
		return nil, errors.New("treasury releaser is required")
	}
	if factory.IsZero() {
		return nil, errors.New("factory identity is required")
	}
	s := &Service{
		governance:   governance,
		treasury:     treasury,
		factory:      factory,
		declarations: NewDeclarationLog(),
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DeclareEvent creates the event's governance instance and funds it. Either step failing
// yields a downstream_failure carrying the failing component's message. When the treasury
// call fails the returned id is still the new instance's (it persists unless compensation
// is on).
func (s *Service) DeclareEvent(ctx context.Context, event id.EventRecord, confidence *float64) (id.InstanceID, *tmodels.ReleaseResult, error) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.declare_event",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("event.type", event.EventType),
			attribute.String("event.severity", event.Severity),
		),
	)
	defer span.End()

	requestID := requestcontext.RequestID(ctx)
	declaredAt := requestcontext.Now(ctx)
	s.logger.InfoContext(ctx, "event declared",
		"request_id", requestID,
		"event_type", event.EventType,
		"severity", event.Severity,
		"confidence_score", confidence,
	)
	if !payout.Known(event.Severity) {
		span.SetAttributes(attribute.Bool("event.severity_known", false))
		s.logger.WarnContext(ctx, "severity not in payout table, no initial funding will be released",
			"request_id", requestID,
			"severity", event.Severity,
		)
	}

	instance, err := s.governance.CreateInstance(ctx, s.factory, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create instance")
		s.logger.WarnContext(ctx, "failed to create governance instance",
			"request_id", requestID,
			"error", err,
		)
		return id.InstanceID{}, nil, dErrors.Wrap(err, dErrors.CodeDownstreamFailure, dErrors.MessageOf(err))
	}
	span.SetAttributes(attribute.String("instance.id", instance.ID.String()))

	declaration := Declaration{
		InstanceID:      instance.ID,
		Event:           event,
		ConfidenceScore: confidence,
		DeclaredAt:      declaredAt,
	}

	result, err := s.release(ctx, instance.ID, event)
	if err != nil {
		declaration.Failure = dErrors.MessageOf(err)
		wrapped := dErrors.Wrap(err, dErrors.CodeDownstreamFailure, dErrors.MessageOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "release initial funding")
		s.logger.WarnContext(ctx, "initial funding failed",
			"request_id", requestID,
			"instance_id", instance.ID,
			"error", err,
		)
		if s.compensate {
			if discardErr := s.governance.Discard(ctx, instance.ID); discardErr != nil {
				s.logger.ErrorContext(ctx, "failed to discard unfunded instance",
					"request_id", requestID,
					"instance_id", instance.ID,
					"error", discardErr,
				)
			} else {
				declaration.Compensated = true
			}
		}
		s.declarations.Record(ctx, declaration)
		s.emitDeclared(ctx, declaration)
		return instance.ID, nil, wrapped
	}

	declaration.Funded = true
	declaration.Payout = result.Payout
	s.declarations.Record(ctx, declaration)
	s.emitDeclared(ctx, declaration)
	span.SetAttributes(attribute.Int64("payout.amount", result.Payout))
	return instance.ID, result, nil
}

func (s *Service) release(ctx context.Context, instanceID id.InstanceID, event id.EventRecord) (*tmodels.ReleaseResult, error) {
	ctx, span := s.tracer.Start(ctx, "treasury.release_initial_funding")
	defer span.End()
	result, err := s.treasury.ReleaseInitialFunding(ctx, s.factory, instanceID.Identity(), event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	return result, nil
}

// ListDeclarations returns every declaration in the order it was made.
func (s *Service) ListDeclarations(ctx context.Context) []Declaration {
	return s.declarations.List(ctx)
}

func (s *Service) emitDeclared(ctx context.Context, d Declaration) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(audit.EventEventDeclared, s.factory)
	event.InstanceID = d.InstanceID
	event.Timestamp = d.DeclaredAt
	event.RequestID = requestcontext.RequestID(ctx)
	event.Subject = d.Event.EventType
	event.Amount = d.Payout
	event.Decision = "funded"
	if !d.Funded {
		event.Decision = "unfunded"
		event.Reason = d.Failure
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", event.RequestID,
			"action", event.Action,
			"error", err,
		)
	}
}
