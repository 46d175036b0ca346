package domain

import (
	"strings"

	dErrors "aegis/pkg/domain-errors"
)

// EventRecord describes a validated disaster event. It is immutable once declared.
type EventRecord struct {
	EventType string `json:"event_type"`
	Severity  string `json:"severity"`
	Details   string `json:"details"`
}

// Validate requires an event type. Severity is free-form: unrecognized tiers pay zero.
func (e EventRecord) Validate() error {
	if strings.TrimSpace(e.EventType) == "" {
		return dErrors.New(dErrors.CodeValidation, "event_type is required")
	}
	return nil
}
