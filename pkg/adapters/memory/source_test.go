package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/storyweave/pkg/adapters/memory"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph(name string) *domain.Graph {
	return &domain.Graph{
		Name: name,
		Nodes: []domain.Node{
			{ID: "start", Data: domain.DialogueData{Character: "Ana", Dialogue: "Hello"}},
			{ID: "end", Data: domain.DialogueData{Dialogue: "Bye"}},
		},
		Edges:     []domain.Edge{{ID: "e", Source: "start", Target: "end"}},
		Variables: []domain.Variable{{ID: "v", Name: "gold", Value: domain.Number(1)}},
	}
}

func TestMemorySource_Contract(t *testing.T) {
	a, b := sampleGraph("a"), sampleGraph("b")
	ports.RunGraphSourceContract(t, memory.NewSource(a, b), map[string]*domain.Graph{"a": a, "b": b})
}

func TestMemorySource_Watch(t *testing.T) {
	src := memory.NewSource(sampleGraph("a"))
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := src.Watch(ctx)
	require.NoError(t, err)

	updated := sampleGraph("a")
	updated.Nodes[0].Data = domain.DialogueData{Dialogue: "Changed"}
	src.Put(updated)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a reload signal")
	}

	g, err := src.LoadGraph(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.DialogueData{Dialogue: "Changed"}, g.Nodes[0].Data)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestMemorySource_Delete(t *testing.T) {
	src := memory.NewSource(sampleGraph("a"), sampleGraph("b"))
	ctx := context.Background()

	src.Delete("a")
	src.Delete("ghost")

	names, err := src.ListGraphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)

	_, err = src.LoadGraph(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}
