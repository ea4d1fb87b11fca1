package runner_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/storyweave"
	"github.com/aretw0/storyweave/pkg/adapters/memory"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/dsl"
	"github.com/aretw0/storyweave/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treasureEngine(t *testing.T) *storyweave.Engine {
	t.Helper()
	b := dsl.New("treasure").Variable("gold", 0).Variable("greedy", false)
	b.Add("start").Say("Guide", "A chest!").Go("pick")
	b.Add("pick").Choice("Open it", "loot").Choice("Leave", "cond")
	b.Add("loot").Set("gold", "10").Go("cond")
	b.Add("cond").If("gold", domain.OpGreaterEqual, 5).True("win").False("lose")
	b.Add("win").Say("Guide", "Rich!")
	b.Add("lose").Say("Guide", "Poor.")
	g, err := b.Build()
	require.NoError(t, err)
	eng, err := storyweave.New(g)
	require.NoError(t, err)
	return eng
}

func decodeViews(t *testing.T, out *bytes.Buffer) []domain.View {
	t.Helper()
	var views []domain.View
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, `{"system"`) {
			continue
		}
		var v domain.View
		require.NoError(t, json.Unmarshal([]byte(line), &v), line)
		views = append(views, v)
	}
	return views
}

func TestRunner_JSONPlaythrough(t *testing.T) {
	in := strings.NewReader("{\"advance\":true}\n{\"choose\":0}\n{\"advance\":true}\n")
	out := &bytes.Buffer{}

	r := runner.NewRunner(
		runner.WithEngine(treasureEngine(t)),
		runner.WithInputHandler(runner.NewJSONHandler(in, out)),
		runner.WithAutoDelay(0),
	)
	final, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, final.Terminated())
	assert.Equal(t, []string{"start", "pick", "loot", "cond", "win"}, final.History)

	views := decodeViews(t, out)
	require.NotEmpty(t, views)
	assert.Equal(t, domain.AwaitAdvance, views[0].Awaiting)
	assert.True(t, views[len(views)-1].Terminal)

	var sawAuto bool
	for _, v := range views {
		if v.Awaiting == domain.AwaitAuto {
			sawAuto = true
		}
	}
	assert.True(t, sawAuto, "automatic nodes are shown before they are stepped")
}

func TestRunner_QuitCloses(t *testing.T) {
	in := strings.NewReader("{\"quit\":true}\n")
	out := &bytes.Buffer{}

	r := runner.NewRunner(
		runner.WithEngine(treasureEngine(t)),
		runner.WithInputHandler(runner.NewJSONHandler(in, out)),
	)
	final, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonClosed, final.Reason)
}

func TestRunner_WrongCommandIsIgnored(t *testing.T) {
	in := strings.NewReader("{\"choose\":0}\n{\"advance\":true}\n{\"advance\":true}\n{\"choose\":1}\n{\"advance\":true}\n")
	out := &bytes.Buffer{}

	r := runner.NewRunner(
		runner.WithEngine(treasureEngine(t)),
		runner.WithInputHandler(runner.NewJSONHandler(in, out)),
		runner.WithAutoDelay(0),
	)
	final, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "pick", "cond", "lose"}, final.History)
	assert.Contains(t, out.String(), `{"system":"there is nothing to choose here"}`)
	assert.Contains(t, out.String(), `{"system":"pick a choice to continue"}`)
}

func TestRunner_ResumeFromStore(t *testing.T) {
	store := memory.NewStore()
	eng := treasureEngine(t)
	ctx := context.Background()

	// First run stops at the choice when input runs out.
	r := runner.NewRunner(
		runner.WithEngine(eng),
		runner.WithStore(store),
		runner.WithSessionID("reader"),
		runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader("{\"advance\":true}\n"), &bytes.Buffer{})),
	)
	state, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pick", state.CurrentNodeID)

	saved, err := store.Load(ctx, "reader")
	require.NoError(t, err)
	assert.Equal(t, "pick", saved.CurrentNodeID)

	out := &bytes.Buffer{}
	r = runner.NewRunner(
		runner.WithEngine(eng),
		runner.WithStore(store),
		runner.WithSessionID("reader"),
		runner.WithAutoDelay(0),
		runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader("{\"choose\":1}\n{\"advance\":true}\n"), out)),
	)
	state, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "pick", "cond", "lose"}, state.History)
	assert.Contains(t, out.String(), "resuming session reader")

	_, err = store.Load(ctx, "reader")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "finished sessions are removed")
}

func TestRunner_VariableOverrides(t *testing.T) {
	in := strings.NewReader("{\"advance\":true}\n{\"choose\":1}\n")
	r := runner.NewRunner(
		runner.WithEngine(treasureEngine(t)),
		runner.WithInputHandler(runner.NewJSONHandler(in, &bytes.Buffer{})),
		runner.WithAutoDelay(0),
		runner.WithVariables(map[string]string{"gold": "7"}),
	)
	final, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "win", final.History[len(final.History)-1])

	r = runner.NewRunner(
		runner.WithEngine(treasureEngine(t)),
		runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader(""), &bytes.Buffer{})),
		runner.WithVariables(map[string]string{"silver": "1"}),
	)
	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrVariableNotFound)
}

func TestRunner_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := runner.NewRunner(
		runner.WithEngine(treasureEngine(t)),
		runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader("{\"advance\":true}\n"), &bytes.Buffer{})),
	)
	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_NoEngine(t *testing.T) {
	_, err := runner.NewRunner().Run(context.Background())
	assert.ErrorIs(t, err, runner.ErrNoEngine)
}

func TestOverrideVariables(t *testing.T) {
	state := domain.NewState("s", "start", []domain.Variable{
		{ID: "g", Name: "gold", Value: domain.Number(0)},
		{ID: "b", Name: "brave", Value: domain.Bool(false)},
	})
	require.NoError(t, runner.OverrideVariables(state, map[string]string{"gold": "12", "brave": "YES"}))
	assert.Equal(t, domain.Number(12), state.Variables[0].Value)
	assert.Equal(t, domain.Bool(true), state.Variables[1].Value)
}
