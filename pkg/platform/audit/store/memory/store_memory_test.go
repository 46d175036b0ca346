package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "aegis/pkg/domain"
	audit "aegis/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	instance := id.NewInstanceID()

	require.NoError(t, store.Append(ctx, audit.Event{Action: "a", Actor: "factory"}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: "b", Actor: "donor-1", InstanceID: instance}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: "c", Actor: "donor-1", InstanceID: instance}))

	t.Run("by actor", func(t *testing.T) {
		events, err := store.ListByActor(ctx, "donor-1")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "b", events[0].Action)
		assert.Equal(t, "c", events[1].Action)
	})

	t.Run("by instance", func(t *testing.T) {
		events, err := store.ListByInstance(ctx, instance)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("recent keeps arrival order", func(t *testing.T) {
		events, err := store.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "b", events[0].Action)

		events, err = store.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})

	t.Run("clear", func(t *testing.T) {
		store.Clear()
		events, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}
