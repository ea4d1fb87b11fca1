package ports

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "start", []domain.Variable{
			{ID: "v1", Name: "gold", Value: domain.Number(42)},
			{ID: "v2", Name: "name", Value: domain.String("Ana")},
			{ID: "v3", Name: "brave", Value: domain.Bool(true)},
		})
		state.Graph = "contract"
		state.History = append(state.History, "next")
		state.CurrentNodeID = "next"

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, state.Status, loaded.Status)
		assert.Equal(t, state.History, loaded.History)
		// Variable kinds must survive the round trip.
		assert.Equal(t, state.Variables, loaded.Variables)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		state := domain.NewState(sessionID, "start", nil)
		state.Status = domain.StatusTerminated
		state.Reason = domain.ReasonClosed
		state.CurrentNodeID = ""
		require.NoError(t, store.Save(ctx, sessionID, state))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, loaded.Terminated())
		assert.Equal(t, domain.ReasonClosed, loaded.Reason)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID, "start", nil))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "start", nil))
		_ = store.Save(ctx, id2, domain.NewState(id2, "start", nil))

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

// RunGraphSourceContract verifies a GraphSource that has been seeded with want.
func RunGraphSourceContract(t *testing.T, source GraphSource, want map[string]*domain.Graph) {
	t.Helper()
	ctx := context.Background()

	t.Run("ListGraphs", func(t *testing.T) {
		names, err := source.ListGraphs(ctx)
		require.NoError(t, err)
		expected := make([]string, 0, len(want))
		for name := range want {
			expected = append(expected, name)
		}
		sort.Strings(expected)
		assert.Equal(t, expected, names)
	})

	t.Run("LoadGraph", func(t *testing.T) {
		for name, g := range want {
			loaded, err := source.LoadGraph(ctx, name)
			require.NoError(t, err, name)
			assert.Equal(t, len(g.Nodes), len(loaded.Nodes), name)
			assert.Equal(t, len(g.Edges), len(loaded.Edges), name)
			assert.Equal(t, g.Variables, loaded.Variables, name)
			for _, n := range g.Nodes {
				got, ok := loaded.Node(n.ID)
				if assert.True(t, ok, "node %s of %s", n.ID, name) {
					assert.Equal(t, n.Data, got.Data, "node %s of %s", n.ID, name)
				}
			}
		}
	})

	t.Run("LoadGraph NotFound", func(t *testing.T) {
		_, err := source.LoadGraph(ctx, "non-existent-graph")
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("LoadGraph Isolation", func(t *testing.T) {
		for name := range want {
			first, err := source.LoadGraph(ctx, name)
			require.NoError(t, err)
			if len(first.Variables) == 0 {
				continue
			}
			first.Variables[0].Value = domain.String("mutated")
			second, err := source.LoadGraph(ctx, name)
			require.NoError(t, err)
			assert.NotEqual(t, domain.String("mutated"), second.Variables[0].Value)
		}
	})
}
