package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/storyweave"
	"github.com/aretw0/storyweave/internal/logging"
	"github.com/aretw0/storyweave/pkg/adapters/memory"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/dsl"
	"github.com/aretw0/storyweave/pkg/observability"
	"github.com/aretw0/storyweave/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tavernEngine(t *testing.T, name string) *storyweave.Engine {
	t.Helper()
	b := dsl.New(name).Variable("drunk", false)
	b.Add("start").Say("Barkeep", "What will it be?").Go("pick")
	b.Add("pick").Choice("Ale", "ale").Choice("Wine", "wine")
	b.Add("ale").Set("drunk", "true").Go("end")
	b.Add("wine").Say("Barkeep", "Fancy.")
	b.Add("end").Say("Barkeep", "Cheers!")
	g, err := b.Build()
	require.NoError(t, err)
	eng, err := storyweave.New(g)
	require.NoError(t, err)
	return eng
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(tavernEngine(t, "tavern"), session.NewManager(memory.NewStore()), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeSession(t *testing.T, data []byte) SessionResponse {
	t.Helper()
	var out SessionResponse
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestServer_HealthAndInfo(t *testing.T) {
	_, ts := newTestServer(t, WithVersion(" 1.0.0\n"))

	resp, body := do(t, "GET", ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	_, body = do(t, "GET", ts.URL+"/info", "")
	assert.JSONEq(t, `{"app":"storyweave-http","version":"1.0.0","graph":"tavern","entry":"start"}`, string(body))
}

func TestServer_PlaythroughFlow(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := do(t, "POST", ts.URL+"/sessions", `{"session_id":"s1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	out := decodeSession(t, body)
	assert.Equal(t, "start", out.State.CurrentNodeID)
	assert.Equal(t, domain.AwaitAdvance, out.View.Awaiting)

	resp, _ = do(t, "POST", ts.URL+"/sessions", `{"session_id":"s1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, body = do(t, "POST", ts.URL+"/sessions/s1/advance", "")
	out = decodeSession(t, body)
	assert.Equal(t, "pick", out.State.CurrentNodeID)
	require.Len(t, out.View.Choices, 2)
	assert.Equal(t, "Wine", out.View.Choices[1].Label)

	_, body = do(t, "POST", ts.URL+"/sessions/s1/choose", `{"index":0}`)
	out = decodeSession(t, body)
	assert.Equal(t, "end", out.State.CurrentNodeID)
	drunk, ok := out.State.Variable("drunk")
	require.True(t, ok)
	assert.Equal(t, domain.Bool(true), drunk.Value)

	_, body = do(t, "GET", ts.URL+"/sessions/s1", "")
	assert.Equal(t, "end", decodeSession(t, body).State.CurrentNodeID)

	resp, body = do(t, "DELETE", ts.URL+"/sessions/s1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeSession(t, body)
	assert.True(t, out.View.Terminal)
	assert.Equal(t, domain.ReasonClosed, out.State.Reason)

	resp, _ = do(t, "GET", ts.URL+"/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CreateGeneratesID(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := do(t, "POST", ts.URL+"/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decodeSession(t, body).State.SessionID
	assert.Len(t, id, 36)

	_, body = do(t, "GET", ts.URL+"/sessions", "")
	assert.JSONEq(t, `{"sessions":["`+id+`"]}`, string(body))
}

func TestServer_BadRequests(t *testing.T) {
	_, ts := newTestServer(t)
	do(t, "POST", ts.URL+"/sessions", `{"session_id":"s1"}`)

	tests := []struct {
		name, method, path, body string
		status                   int
	}{
		{"Malformed Create", "POST", "/sessions", `{`, http.StatusBadRequest},
		{"Malformed Choose", "POST", "/sessions/s1/choose", `nope`, http.StatusBadRequest},
		{"Missing Index", "POST", "/sessions/s1/choose", `{}`, http.StatusBadRequest},
		{"Unknown Advance", "POST", "/sessions/ghost/advance", "", http.StatusNotFound},
		{"Unknown Close", "DELETE", "/sessions/ghost", "", http.StatusNotFound},
		{"Unknown Overlay", "GET", "/graph/mermaid?session=ghost", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestServer_Graph(t *testing.T) {
	_, ts := newTestServer(t)
	do(t, "POST", ts.URL+"/sessions", `{"session_id":"s1"}`)
	do(t, "POST", ts.URL+"/sessions/s1/advance", "")

	_, body := do(t, "GET", ts.URL+"/graph", "")
	var g domain.Graph
	require.NoError(t, json.Unmarshal(body, &g))
	assert.Len(t, g.Nodes, 5)

	resp, body := do(t, "GET", ts.URL+"/graph/mermaid?session=s1", "")
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(body), "class start visited;")
	assert.Contains(t, string(body), "class pick current;")
}

func TestServer_Metrics(t *testing.T) {
	m, err := observability.NewMetrics(nil)
	require.NoError(t, err)
	_, ts := newTestServer(t, WithMetrics(m))

	do(t, "POST", ts.URL+"/sessions", `{"session_id":"a"}`)
	do(t, "POST", ts.URL+"/sessions", `{"session_id":"b"}`)
	do(t, "DELETE", ts.URL+"/sessions/a", "")

	_, body := do(t, "GET", ts.URL+"/metrics", "")
	assert.Contains(t, string(body), "storyweave_active_sessions 1")
}

func TestServer_ActiveSessionsFollowEndings(t *testing.T) {
	m, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	_, ts := newTestServer(t, WithMetrics(m))

	do(t, "POST", ts.URL+"/sessions", `{"session_id":"a"}`)
	do(t, "POST", ts.URL+"/sessions", `{"session_id":"b"}`)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveSessions))

	// "Wine" leads to a dialogue with no way out.
	do(t, "POST", ts.URL+"/sessions/a/advance", "")
	do(t, "POST", ts.URL+"/sessions/a/choose", `{"index":1}`)
	_, body := do(t, "POST", ts.URL+"/sessions/a/advance", "")
	require.True(t, decodeSession(t, body).View.Terminal)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))

	do(t, "DELETE", ts.URL+"/sessions/a", "")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))

	do(t, "DELETE", ts.URL+"/sessions/b", "")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestServer_NoMetricsRoute(t *testing.T) {
	_, ts := newTestServer(t)
	resp, _ := do(t, "GET", ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// readEvents opens an SSE stream and returns a channel of its data payloads.
func readEvents(t *testing.T, ctx context.Context, url string) <-chan string {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	out := make(chan string, 10)
	go func() {
		defer resp.Body.Close()
		defer close(out)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if line, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				out <- line
			}
		}
	}()
	require.Equal(t, "connected", <-out)
	return out
}

func next(t *testing.T, events <-chan string) string {
	t.Helper()
	select {
	case msg := <-events:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func TestServer_SessionEvents(t *testing.T) {
	srv, ts := newTestServer(t)
	do(t, "POST", ts.URL+"/sessions", `{"session_id":"s1"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	all := readEvents(t, ctx, ts.URL+"/sessions/s1/events")
	vars := readEvents(t, ctx, ts.URL+"/sessions/s1/events?watch=variables")
	require.Eventually(t, func() bool { return srv.Streams().Subscribers("s1") == 2 }, time.Second, 10*time.Millisecond)

	do(t, "POST", ts.URL+"/sessions/s1/advance", "")
	do(t, "POST", ts.URL+"/sessions/s1/choose", `{"index":0}`)

	var diff domain.StateDiff
	require.NoError(t, json.Unmarshal([]byte(next(t, all)), &diff))
	assert.Equal(t, "pick", *diff.CurrentNodeID)
	assert.Nil(t, diff.Variables)

	require.NoError(t, json.Unmarshal([]byte(next(t, vars)), &diff))
	assert.Equal(t, true, diff.Variables["drunk"])
}

func TestServer_ReloadEvents(t *testing.T) {
	srv, ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := readEvents(t, ctx, ts.URL+"/events")
	require.Eventually(t, func() bool { return srv.Streams().Subscribers(globalTopic) == 1 }, time.Second, 10*time.Millisecond)

	srv.SetPlayer(tavernEngine(t, "tavern-v2"))
	assert.JSONEq(t, `{"type":"reload","graph":"tavern-v2"}`, next(t, events))

	_, body := do(t, "GET", ts.URL+"/info", "")
	assert.Contains(t, string(body), "tavern-v2")
}

func TestServer_Serve(t *testing.T) {
	srv := NewServer(tavernEngine(t, "tavern"), session.NewManager(memory.NewStore()))
	ctx, cancel := context.WithCancel(context.Background())

	ran := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, "127.0.0.1:0", func(ctx context.Context) error {
			close(ran)
			<-ctx.Done()
			return nil
		})
	}()

	<-ran
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())
	ch, cancel := sm.Subscribe("s")
	for i := 0; i < 20; i++ {
		sm.Broadcast("s", "m")
	}
	assert.Len(t, ch, 10)
	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("s"))
}
