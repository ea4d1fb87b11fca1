package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/storyweave"
	"github.com/aretw0/storyweave/internal/config"
	"github.com/aretw0/storyweave/internal/logging"
	"github.com/aretw0/storyweave/internal/validator"
	"github.com/aretw0/storyweave/pkg/adapters/memory"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Dir:          dir,
		Source:       config.SourceFile,
		Entry:        "start",
		LogLevel:     "error",
		Port:         8080,
		Store:        config.StoreMemory,
		SessionDir:   ".storyweave/sessions",
		SQLitePath:   ".storyweave/sessions.db",
		MaxInputSize: 4096,
	}
}

func scaffoldDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := Scaffold(dir, "cave", "start")
	require.NoError(t, err)
	return dir
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

func TestScaffold(t *testing.T) {
	dir := t.TempDir()

	path, err := Scaffold(dir, "cave", "start")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cave.json"), path)

	_, err = Scaffold(dir, "cave", "start")
	assert.ErrorIs(t, err, ErrGraphExists)

	_, err = Scaffold(dir, "../escape", "start")
	assert.ErrorContains(t, err, "invalid graph name")

	var out bytes.Buffer
	report, err := Validate(context.Background(), &out, testConfig(dir), "cave")
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
	assert.Contains(t, out.String(), "Graph 'cave' is valid!")
}

func TestResolveGraphName(t *testing.T) {
	ctx := context.Background()
	one := memory.NewSource(&domain.Graph{Name: "solo"})
	many := memory.NewSource(&domain.Graph{Name: "a"}, &domain.Graph{Name: "main"}, &domain.Graph{Name: "z"})
	named := memory.NewSource(&domain.Graph{Name: "a"}, &domain.Graph{Name: "tales"})
	ambiguous := memory.NewSource(&domain.Graph{Name: "a"}, &domain.Graph{Name: "b"})

	tests := []struct {
		name      string
		source    *memory.Source
		dir       string
		requested string
		want      string
		wantErr   string
	}{
		{name: "requested wins", source: ambiguous, requested: "b", want: "b"},
		{name: "single graph", source: one, want: "solo"},
		{name: "conventional name", source: many, want: "main"},
		{name: "directory name", source: named, dir: "/stories/tales", want: "tales"},
		{name: "ambiguous", source: ambiguous, wantErr: "several graphs found, name one of: a, b"},
		{name: "empty", source: memory.NewSource(), wantErr: "no graphs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.dir
			if dir == "" {
				dir = t.TempDir()
			}
			got, err := ResolveGraphName(ctx, tt.source, dir, tt.requested)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenSource_IgnoresConfigFile(t *testing.T) {
	dir := scaffoldDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storyweave.yaml"), []byte("port: 9000\n"), 0o644))

	src, err := OpenSource(testConfig(dir), logging.NewNop())
	require.NoError(t, err)
	names, err := src.ListGraphs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cave"}, names)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{config.StoreMemory, config.StoreFile, config.StoreSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t.TempDir())
			cfg.Store = backend

			store, err := OpenStore(cfg)
			require.NoError(t, err)
			defer store.Close()
			assert.Nil(t, store.Locker)

			require.NoError(t, store.Save(ctx, "s1", domain.NewState("s1", "start", nil)))
			ids, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"s1"}, ids)
		})
	}

	cfg := testConfig(t.TempDir())
	cfg.Store = "mongo"
	_, err := OpenStore(cfg)
	assert.ErrorContains(t, err, `unknown store "mongo"`)
}

func TestOpenStore_Middleware(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t.TempDir())
	cfg.Store = config.StoreFile
	cfg.EncryptionKey = strings.Repeat("ab", 32)
	cfg.RedactVariables = []string{"^secret"}

	store, err := OpenStore(cfg)
	require.NoError(t, err)
	state := domain.NewState("s1", "start", []domain.Variable{{ID: "secret", Name: "secret", Value: domain.String("x")}})
	require.NoError(t, store.Save(ctx, "s1", state))

	raw, err := os.ReadFile(filepath.Join(cfg.Dir, cfg.SessionDir, "s1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "__encrypted__")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	v, _ := loaded.Variable("secret")
	assert.Equal(t, "***", v.Value.String())

	cfg.EncryptionKey = "too-short"
	_, err = OpenStore(cfg)
	assert.ErrorContains(t, err, "encryption key must be 32 bytes")
}

func TestPlay_JSON(t *testing.T) {
	dir := scaffoldDir(t)
	var out bytes.Buffer

	err := Play(context.Background(), testConfig(dir), PlayOptions{
		JSON: true,
		In:   strings.NewReader("{\"advance\":true}\n{\"choose\":0}\n{\"advance\":true}\n"),
		Out:  &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "old map")
	assert.Contains(t, lastLine(out.String()), `"terminal":true`)
}

func TestPlay_VariableOverride(t *testing.T) {
	dir := scaffoldDir(t)
	var out bytes.Buffer

	err := Play(context.Background(), testConfig(dir), PlayOptions{
		JSON: true,
		Vars: map[string]string{"courage": "1"},
		In:   strings.NewReader("{\"advance\":true}\n{\"choose\":1}\n"),
		Out:  &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "old map", "courage from --vars takes the true branch")
	assert.NotContains(t, out.String(), "Morning comes")
}

func TestPlay_Text(t *testing.T) {
	dir := scaffoldDir(t)
	var out bytes.Buffer

	err := Play(context.Background(), testConfig(dir), PlayOptions{
		In:  strings.NewReader("\n2\n\n"),
		Out: &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "The lantern flickers")
	assert.Contains(t, out.String(), "1) Step inside")
	assert.Contains(t, out.String(), "Morning comes")
	assert.Contains(t, out.String(), "--- The End ---")
}

func TestPlay_SavedSession(t *testing.T) {
	dir := scaffoldDir(t)
	cfg := testConfig(dir)
	ctx := context.Background()

	var out bytes.Buffer
	err := Play(ctx, cfg, PlayOptions{SessionID: "s1", In: strings.NewReader("\n"), Out: &out})
	require.NoError(t, err)
	assert.Contains(t, out.String(), ">>> Session 's1' saved at")

	fileCfg := *cfg
	fileCfg.Store = config.StoreFile
	store, err := OpenStore(&fileCfg)
	require.NoError(t, err)

	var listing bytes.Buffer
	require.NoError(t, ListSessions(ctx, &listing, store))
	assert.Contains(t, listing.String(), "s1")
	assert.Contains(t, listing.String(), "cave")

	out.Reset()
	err = Play(ctx, cfg, PlayOptions{SessionID: "s1", JSON: true, In: strings.NewReader("{\"choose\":1}\n{\"advance\":true}\n"), Out: &out})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "resuming session s1")
	assert.Contains(t, out.String(), "Morning comes")

	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "finished sessions are removed")
}

func TestPlay_Fresh(t *testing.T) {
	dir := scaffoldDir(t)
	cfg := testConfig(dir)
	ctx := context.Background()

	require.NoError(t, Play(ctx, cfg, PlayOptions{SessionID: "s1", JSON: true, In: strings.NewReader("{\"advance\":true}\n"), Out: &bytes.Buffer{}}))

	var out bytes.Buffer
	require.NoError(t, Play(ctx, cfg, PlayOptions{SessionID: "s1", Fresh: true, JSON: true, In: strings.NewReader(""), Out: &out}))
	assert.NotContains(t, out.String(), "resuming")
	assert.Contains(t, out.String(), "The lantern flickers")
}

func TestSessions_InspectAndRemove(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	state := domain.NewState("s1", "start", []domain.Variable{{ID: "gold", Name: "gold", Value: domain.Number(3)}})
	state.Graph = "cave"
	require.NoError(t, store.Save(ctx, "s1", state))
	require.NoError(t, store.Save(ctx, "s2", domain.NewState("s2", "start", nil)))

	var out bytes.Buffer
	require.NoError(t, InspectSession(ctx, &out, store, "s1"))
	assert.Contains(t, out.String(), `"current_node_id": "start"`)
	assert.Contains(t, out.String(), `"graph": "cave"`)

	assert.ErrorIs(t, InspectSession(ctx, &out, store, "ghost"), domain.ErrSessionNotFound)

	out.Reset()
	require.NoError(t, RemoveSessions(ctx, &out, store, []string{"s1"}, false))
	assert.Contains(t, out.String(), "Removed session 's1'")

	out.Reset()
	require.NoError(t, RemoveSessions(ctx, &out, store, nil, true))
	assert.Contains(t, out.String(), "Removed session 's2'")

	out.Reset()
	require.NoError(t, ListSessions(ctx, &out, store))
	assert.Equal(t, "No active sessions found.\n", out.String())
}

func TestValidate_Report(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(`
nodes:
  - id: start
    type: dialogue
    data: {character: Guide, dialogue: Hi}
edges:
  - {id: e1, source: start, target: ghost}
`), 0o644))

	var out bytes.Buffer
	report, err := Validate(context.Background(), &out, testConfig(dir), "")
	require.NoError(t, err)
	assert.True(t, report.HasErrors())
	assert.Contains(t, out.String(), "unknown_target")
	assert.Contains(t, out.String(), "1 error(s)")
}

func TestWriteReport(t *testing.T) {
	var out bytes.Buffer
	WriteReport(&out, &validator.Report{Issues: []validator.Issue{
		{Severity: validator.SeverityWarning, Code: "unreachable", NodeID: "island", Message: "node island is unreachable"},
	}})
	assert.Contains(t, out.String(), "island")
	assert.Contains(t, out.String(), "0 error(s), 1 warning(s)")
}

func TestMermaid(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Mermaid(context.Background(), &out, testConfig(scaffoldDir(t)), "cave"))
	assert.True(t, strings.HasPrefix(out.String(), "graph TD"))
	assert.Contains(t, out.String(), "courage")
}

func TestReloadOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := dsl.New("tale")
	b.Add("start").Say("Guide", "v1")
	g1, err := b.Build()
	require.NoError(t, err)
	source := memory.NewSource(g1)

	load := func(ctx context.Context) (*storyweave.Engine, error) {
		return storyweave.Load(ctx, source, "tale")
	}
	swapped := make(chan *storyweave.Engine, 1)

	done := make(chan error, 1)
	go func() {
		done <- reloadOnChange(ctx, source, logging.NewNop(), load, func(e *storyweave.Engine) {
			select {
			case swapped <- e:
			default:
			}
		})
	}()

	// Give the watcher time to subscribe.
	require.Eventually(t, func() bool {
		b2 := dsl.New("tale")
		b2.Add("start").Say("Guide", "v2")
		g2, err := b2.Build()
		require.NoError(t, err)
		source.Put(g2)
		select {
		case e := <-swapped:
			view := e.View(mustStart(t, e))
			d, ok := view.Node.Data.(domain.DialogueData)
			return ok && d.Dialogue == "v2"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func mustStart(t *testing.T, e *storyweave.Engine) *domain.State {
	t.Helper()
	state, err := e.Start(context.Background(), "reload-check")
	require.NoError(t, err)
	return state
}
