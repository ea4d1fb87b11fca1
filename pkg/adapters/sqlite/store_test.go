package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, openTestStore(t))
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ports.RunStateStoreContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	state := domain.NewState("s1", "start", []domain.Variable{{ID: "gold", Name: "gold", Value: domain.Number(3)}})
	require.NoError(t, store.Save(ctx, "s1", state))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, state.Variables, loaded.Variables)
}

func TestSQLiteStore_ListByGraph(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for id, graph := range map[string]string{"a": "tavern", "b": "forest", "c": "tavern"} {
		st := domain.NewState(id, "start", nil)
		st.Graph = graph
		require.NoError(t, store.Save(ctx, id, st))
	}

	ids, err := store.ListByGraph(ctx, "tavern")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids)
}

func TestSQLiteStore_Validation(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)

	store := openTestStore(t)
	assert.Error(t, store.Save(context.Background(), "", domain.NewState("", "start", nil)))
}
