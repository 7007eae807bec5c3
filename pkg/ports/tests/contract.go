// Package tests holds reusable contract suites for port implementations.
package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `alias: Contract
triggers:
  - trigger: state
    entity_id: binary_sensor.hall
actions:
  - action: light.turn_on
`

// AutomationStoreContractTest verifies that an adapter complies with ports.AutomationStore.
// The store must start empty.
func AutomationStoreContractTest(t *testing.T, store ports.AutomationStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		in := &ports.StoredAutomation{ID: "hall", Alias: "Contract", YAML: sampleYAML, UpdatedAt: time.Now().UTC().Truncate(time.Second)}
		require.NoError(t, store.Save(ctx, in))

		got, err := store.Load(ctx, "hall")
		require.NoError(t, err)
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, in.Alias, got.Alias)
		assert.Equal(t, in.YAML, got.YAML)
		assert.True(t, in.UpdatedAt.Equal(got.UpdatedAt), "updated_at %v != %v", in.UpdatedAt, got.UpdatedAt)

		got.YAML = "mutated"
		again, err := store.Load(ctx, "hall")
		require.NoError(t, err)
		assert.Equal(t, sampleYAML, again.YAML, "loaded values must not alias the store")
	})

	t.Run("Save Replaces", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &ports.StoredAutomation{ID: "hall", YAML: "v2", UpdatedAt: time.Now()}))
		got, err := store.Load(ctx, "hall")
		require.NoError(t, err)
		assert.Equal(t, "v2", got.YAML)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Invalid ID", func(t *testing.T) {
		err := store.Save(ctx, &ports.StoredAutomation{ID: "../escape", YAML: "x"})
		assert.ErrorIs(t, err, ports.ErrInvalidID)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &ports.StoredAutomation{ID: "porch", YAML: "x", UpdatedAt: time.Now()}))
		require.NoError(t, store.Save(ctx, &ports.StoredAutomation{ID: "garage", YAML: "y", UpdatedAt: time.Now()}))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"garage", "hall", "porch"}, ids)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "porch"))
		_, err := store.Load(ctx, "porch")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, store.Delete(ctx, "porch"), "deleting twice is not an error")

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"garage", "hall"}, ids)
	})

	t.Run("Concurrent Saves", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Save(ctx, &ports.StoredAutomation{ID: "busy", YAML: "z", UpdatedAt: time.Now()}))
			}()
		}
		wg.Wait()
		got, err := store.Load(ctx, "busy")
		require.NoError(t, err)
		assert.Equal(t, "z", got.YAML)
	})
}

// LockerContractTest verifies mutual exclusion of a ports.DistributedLocker.
func LockerContractTest(t *testing.T, locker ports.DistributedLocker) {
	t.Helper()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "hall", time.Second)
	require.NoError(t, err)

	blocked, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blocked, "hall", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "second lock must wait for the first")

	other, err := locker.Lock(ctx, "porch", time.Second)
	require.NoError(t, err, "different keys do not contend")
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	again, err := locker.Lock(ctx, "hall", time.Second)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}
