package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	connID := "contract-test-conn-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewSessionState(connID, domain.EntryNodeID)
		state.RecordStorage("name", []string{"alice"})
		state.Advance("ASK_MOOD")
		state.MarkEnded()

		err := store.Save(ctx, connID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, connID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "ASK_MOOD", loaded.CurrentNodeID)
		assert.Equal(t, domain.PhaseFreeText, loaded.Phase)
		assert.Equal(t, []domain.StoredDatum{{Key: "name", Tokens: []string{"alice"}}}, loaded.StoredData)
		assert.Equal(t, []string{domain.EntryNodeID, "ASK_MOOD"}, loaded.History)
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		state := domain.NewSessionState(connID, domain.EntryNodeID)
		require.NoError(t, store.Save(ctx, connID, state))

		state.Advance("MUTATED")
		loaded, err := store.Load(ctx, connID)
		require.NoError(t, err)
		assert.Equal(t, domain.EntryNodeID, loaded.CurrentNodeID, "store must not alias caller state")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+connID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, connID, domain.NewSessionState(connID, domain.EntryNodeID))
		require.NoError(t, err)

		err = store.Delete(ctx, connID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, connID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, connID), "Delete of a missing session is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := connID + "-1"
		id2 := connID + "-2"
		_ = store.Save(ctx, id1, domain.NewSessionState(id1, domain.EntryNodeID))
		_ = store.Save(ctx, id2, domain.NewSessionState(id2, domain.EntryNodeID))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
