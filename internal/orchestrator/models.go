package orchestrator

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
)

// DeclareRequest is the validated event payload produced by the upstream agents.
// details_json may be a JSON string or any JSON value; non-string values are stored compacted.
type DeclareRequest struct {
	EventType       string          `json:"event_type"`
	Severity        string          `json:"severity"`
	DetailsJSON     json.RawMessage `json:"details_json"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`

	details string
}

func (r *DeclareRequest) Validate() error {
	r.EventType = strings.TrimSpace(r.EventType)
	if r.EventType == "" {
		return dErrors.New(dErrors.CodeValidation, "event_type is required")
	}
	if r.ConfidenceScore != nil && (*r.ConfidenceScore < 0 || *r.ConfidenceScore > 1) {
		return dErrors.New(dErrors.CodeValidation, "confidence_score must be between 0 and 1")
	}
	details, err := decodeDetails(r.DetailsJSON)
	if err != nil {
		return err
	}
	r.details = details
	return nil
}

// Event returns the record bound to the new instance.
func (r *DeclareRequest) Event() id.EventRecord {
	return id.EventRecord{EventType: r.EventType, Severity: r.Severity, Details: r.details}
}

func decodeDetails(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "details_json must be valid JSON")
	}
	return buf.String(), nil
}

// Declaration records one declare_event call, funded or not.
type Declaration struct {
	InstanceID      id.InstanceID  `json:"instance_id"`
	Event           id.EventRecord `json:"event"`
	Funded          bool           `json:"funded"`
	Payout          int64          `json:"payout"`
	Failure         string         `json:"failure,omitempty"`
	Compensated     bool           `json:"compensated,omitempty"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
	DeclaredAt      time.Time      `json:"declared_at"`
}

type DeclareResponse struct {
	InstanceID id.InstanceID `json:"instance_id"`
	Message    string        `json:"message"`
}

type DeclarationsResponse struct {
	Declarations []Declaration `json:"declarations"`
}
