package audit

import (
	"context"
	"time"

	id "aegis/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryFinancial covers movements of value: vault funding, payouts, donations and
	// proposal execution. These are the records an auditor reconciles balances against.
	CategoryFinancial EventCategory = "financial"

	// CategorySecurity covers authorization changes and rejected privileged calls.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers lifecycle events useful for operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	Action     string
	Actor      id.Identity
	InstanceID id.InstanceID
	// Subject is the identity acted upon when different from Actor, e.g. the payout
	// recipient or the funder being authorized.
	Subject  string
	Amount   int64
	Decision string
	Reason   string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	// Treasury events
	EventVaultFunded    AuditEvent = "vault_funded"
	EventFunderAdded    AuditEvent = "funder_added"
	EventPayoutReleased AuditEvent = "payout_released"
	EventPayoutSkipped  AuditEvent = "payout_skipped"
	EventPayoutRejected AuditEvent = "payout_rejected"

	// Orchestration events
	EventEventDeclared     AuditEvent = "event_declared"
	EventInstanceCreated   AuditEvent = "instance_created"
	EventInstanceDiscarded AuditEvent = "instance_discarded"

	// Governance events
	EventDonationReceived  AuditEvent = "donation_received"
	EventProposalSubmitted AuditEvent = "proposal_submitted"
	EventVoteCast          AuditEvent = "vote_cast"
	EventProposalExecuted  AuditEvent = "proposal_executed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVaultFunded:      CategoryFinancial,
	EventPayoutReleased:   CategoryFinancial,
	EventDonationReceived: CategoryFinancial,
	EventProposalExecuted: CategoryFinancial,

	EventFunderAdded:    CategorySecurity,
	EventPayoutRejected: CategorySecurity,

	EventPayoutSkipped:     CategoryOperations,
	EventEventDeclared:     CategoryOperations,
	EventInstanceCreated:   CategoryOperations,
	EventInstanceDiscarded: CategoryOperations,
	EventProposalSubmitted: CategoryOperations,
	EventVoteCast:          CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// NewEvent builds an Event with its category resolved from the action.
func NewEvent(action AuditEvent, actor id.Identity) Event {
	return Event{
		Category: action.Category(),
		Action:   string(action),
		Actor:    actor,
	}
}
