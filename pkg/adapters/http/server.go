package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/storyweave/internal/logging"
	"github.com/aretw0/storyweave/internal/presentation/graph"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/observability"
	"github.com/aretw0/storyweave/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Player is the slice of the engine the server drives. *storyweave.Engine satisfies it.
type Player interface {
	Start(ctx context.Context, sessionID string) (*domain.State, error)
	Advance(ctx context.Context, state *domain.State) (*domain.State, error)
	Choose(ctx context.Context, state *domain.State, index int) (*domain.State, error)
	Settle(ctx context.Context, state *domain.State) (*domain.State, error)
	Close(ctx context.Context, state *domain.State) (*domain.State, error)
	View(state *domain.State) domain.View
	Inspect() *domain.Graph
	EntryNode() string
}

// SessionResponse is the body of every session endpoint.
type SessionResponse struct {
	State *domain.State `json:"state"`
	View  domain.View   `json:"view"`
}

// Server exposes a Player and its stored sessions over HTTP.
type Server struct {
	mu       sync.RWMutex
	player   Player
	sessions *session.Manager
	streams  *StreamManager
	metrics  *observability.Metrics
	logger   *slog.Logger
	version  string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records session counts and serves GET /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithVersion is reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(v)
	}
}

// NewServer creates a server playing p with sessions kept by sessions.
func NewServer(p Player, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		player:   p,
		sessions: sessions,
		logger:   logging.NewNop(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	return s
}

// Player returns the engine currently served.
func (s *Server) Player() Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player
}

// SetPlayer swaps the engine after a graph reload and notifies /events
// subscribers. Stored sessions continue on the new graph by node ID.
func (s *Server) SetPlayer(p Player) {
	s.mu.Lock()
	s.player = p
	s.mu.Unlock()

	name := ""
	if g := p.Inspect(); g != nil {
		name = g.Name
	}
	s.streams.Broadcast(globalTopic, fmt.Sprintf(`{"type":"reload","graph":%q}`, name))
}

// Streams exposes the SSE fan-out.
func (s *Server) Streams() *StreamManager {
	return s.streams
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, s.requestLogger, enableCORS)

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/graph", s.getGraph)
	r.Get("/graph/mermaid", s.getMermaid)
	r.Get("/events", s.subscribeGlobal)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.closeSession)
			r.Post("/advance", s.advance)
			r.Post("/choose", s.choose)
			r.Get("/events", s.subscribeSession)
		})
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Serve listens on addr until ctx is done, running background tasks (such
// as a graph watcher) alongside. The first failing task stops the rest.
func (s *Server) Serve(ctx context.Context, addr string, background ...func(context.Context) error) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	for _, task := range background {
		eg.Go(func() error { return task(egctx) })
	}

	eg.Go(func() error {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Debug("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	p := s.Player()
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "storyweave-http",
		"version": s.version,
		"graph":   p.Inspect().Name,
		"entry":   p.EntryNode(),
	})
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Player().Inspect())
}

// getMermaid renders the graph; ?session=<id> overlays that session's path.
func (s *Server) getMermaid(w http.ResponseWriter, r *http.Request) {
	p := s.Player()
	overlay := &graph.GraphOverlay{EntryNode: p.EntryNode()}
	if id := r.URL.Query().Get("session"); id != "" {
		st, err := s.sessions.Load(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		overlay.VisitedNodes = st.History
		overlay.CurrentNode = st.CurrentNodeID
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(p.Inspect(), overlay)))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

type createRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, badRequest(err))
			return
		}
	}
	if body.SessionID == "" {
		body.SessionID = uuid.NewString()
	}

	p := s.Player()
	st, err := s.sessions.Create(r.Context(), body.SessionID, func(ctx context.Context) (*domain.State, error) {
		st, err := p.Start(ctx, body.SessionID)
		if err != nil {
			return nil, err
		}
		return p.Settle(ctx, st)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.trackActive(nil, st)
	s.broadcastDiff(nil, st)
	s.writeJSON(w, http.StatusCreated, SessionResponse{State: st, View: p.View(st)})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{State: st, View: s.Player().View(st)})
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	p := s.Player()
	s.update(w, r, p, func(ctx context.Context, st *domain.State) (*domain.State, error) {
		next, err := p.Advance(ctx, st)
		if err != nil {
			return nil, err
		}
		return p.Settle(ctx, next)
	})
}

type chooseRequest struct {
	Index *int `json:"index"`
}

func (s *Server) choose(w http.ResponseWriter, r *http.Request) {
	var body chooseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, badRequest(err))
		return
	}
	if body.Index == nil {
		s.writeError(w, badRequest(errors.New("index is required")))
		return
	}

	p := s.Player()
	s.update(w, r, p, func(ctx context.Context, st *domain.State) (*domain.State, error) {
		next, err := p.Choose(ctx, st, *body.Index)
		if err != nil {
			return nil, err
		}
		return p.Settle(ctx, next)
	})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, p Player, next session.Transition) {
	before, after, err := s.sessions.Update(r.Context(), chi.URLParam(r, "id"), next)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.trackActive(before, after)
	s.broadcastDiff(before, after)
	s.writeJSON(w, http.StatusOK, SessionResponse{State: after, View: p.View(after)})
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	p := s.Player()
	before, after, err := s.sessions.Close(r.Context(), chi.URLParam(r, "id"), p.Close)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.trackActive(before, after)
	s.broadcastDiff(before, after)
	s.writeJSON(w, http.StatusOK, SessionResponse{State: after, View: p.View(after)})
}

// trackActive keeps the active-sessions gauge in step with a transition. A
// session counts while it is not terminated, however it ends.
func (s *Server) trackActive(before, after *domain.State) {
	if s.metrics == nil {
		return
	}
	wasActive := before != nil && !before.Terminated()
	isActive := after != nil && !after.Terminated()
	switch {
	case !wasActive && isActive:
		s.metrics.SessionOpened()
	case wasActive && !isActive:
		s.metrics.SessionClosed()
	}
}

func (s *Server) broadcastDiff(before, after *domain.State) {
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("failed to encode state diff", "err", err)
		return
	}
	s.streams.Broadcast(diff.SessionID, string(data))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return requestError{fmt.Errorf("invalid request body: %w", err)}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var reqErr requestError
	switch {
	case errors.As(err, &reqErr):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrSessionExists):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
