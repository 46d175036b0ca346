package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "aegis/pkg/domain-errors"
)

func TestEventRecordValidate(t *testing.T) {
	assert.NoError(t, EventRecord{EventType: "Flood", Severity: "Anything"}.Validate())

	err := EventRecord{EventType: "  ", Severity: "High"}.Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
