package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "aegis/pkg/domain"
	audit "aegis/pkg/platform/audit"
)

func TestNewRecord(t *testing.T) {
	instanceID := id.NewInstanceID()
	ts := time.Date(2026, 5, 1, 8, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))

	t.Run("instance event is keyed by instance", func(t *testing.T) {
		e := audit.NewEvent(audit.EventDonationReceived, "alice")
		e.InstanceID = instanceID
		e.Timestamp = ts
		e.Amount = 25

		r := NewRecord(e)
		assert.Equal(t, instanceID.String(), string(r.Key()))
		assert.Equal(t, ts.UTC(), r.Timestamp)

		raw, err := json.Marshal(r)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, "donation_received", decoded["action"])
		assert.Equal(t, "financial", decoded["category"])
		assert.Equal(t, float64(25), decoded["amount"])
	})

	t.Run("treasury event has the shared key", func(t *testing.T) {
		r := NewRecord(audit.NewEvent(audit.EventVaultFunded, "funder-1"))
		assert.Empty(t, r.InstanceID)
		assert.Equal(t, "treasury", string(r.Key()))
	})
}
