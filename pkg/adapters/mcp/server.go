package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/storyweave/internal/logging"
	"github.com/aretw0/storyweave/internal/presentation/graph"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/runner"
	"github.com/aretw0/storyweave/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// GraphURI is the resource exposing the graph JSON.
const GraphURI = "storyweave://graph"

// Engine is the slice of the playback engine the tools drive.
type Engine interface {
	Start(ctx context.Context, sessionID string) (*domain.State, error)
	Advance(ctx context.Context, state *domain.State) (*domain.State, error)
	Choose(ctx context.Context, state *domain.State, index int) (*domain.State, error)
	Settle(ctx context.Context, state *domain.State) (*domain.State, error)
	Close(ctx context.Context, state *domain.State) (*domain.State, error)
	View(state *domain.State) domain.View
	Inspect() *domain.Graph
	EntryNode() string
}

// SessionResponse is the structured result of every session tool.
type SessionResponse struct {
	State *domain.State `json:"state" jsonschema_description:"The session state after the call"`
	View  domain.View   `json:"view" jsonschema_description:"What to show the reader and what the session awaits"`
}

// Server exposes an engine and its sessions as MCP tools.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for rejected calls.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates the MCP server and registers its tools and resources.
func NewServer(engine Engine, sessions *session.Manager, version string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		sessions:  sessions,
		mcpServer: server.NewMCPServer("storyweave-mcp", strings.TrimSpace(version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Handle("/sse", sse.SSEHandler())
	r.Handle("/message", sse.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: r}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("The playback session ID"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a new playback session at the entry node and run automatic nodes."),
		mcp.WithString("session_id", mcp.Description("Session ID to use (a UUID is generated when omitted)")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("advance",
		mcp.WithDescription("Move past the current dialogue node."),
		sessionArg(),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleAdvance))

	s.mcpServer.AddTool(mcp.NewTool("choose",
		mcp.WithDescription("Pick a choice of the current choice node by its index."),
		sessionArg(),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based choice index")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleChoose))

	s.mcpServer.AddTool(mcp.NewTool("view_session",
		mcp.WithDescription("Show the current node, choices and variables of a session."),
		sessionArg(),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleView))

	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("End a session and forget it."),
		sessionArg(),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleClose))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the graph definition, as JSON or as a Mermaid flowchart."),
		mcp.WithString("format", mcp.Description("json (default) or mermaid"), mcp.Enum("json", "mermaid")),
	), s.handleGetGraph)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Current Graph Definition",
		mcp.WithMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) sessionID(args map[string]any) (string, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return "", errors.New("session_id is required")
	}
	clean, err := runner.SanitizeInput(id)
	if err != nil {
		s.logger.Warn("MCP: session id rejected", "err", err, "size", len(id))
		return "", fmt.Errorf("session_id rejected: %w", err)
	}
	return clean, nil
}

func (s *Server) respond(st *domain.State) SessionResponse {
	return SessionResponse{State: st, View: s.engine.View(st)}
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (SessionResponse, error) {
	id := uuid.NewString()
	if raw, _ := args["session_id"].(string); raw != "" {
		clean, err := s.sessionID(args)
		if err != nil {
			return SessionResponse{}, err
		}
		id = clean
	}

	st, err := s.sessions.Create(ctx, id, func(ctx context.Context) (*domain.State, error) {
		st, err := s.engine.Start(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.engine.Settle(ctx, st)
	})
	if err != nil {
		return SessionResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return s.respond(st), nil
}

func (s *Server) handleAdvance(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (SessionResponse, error) {
	return s.update(ctx, args, func(ctx context.Context, st *domain.State) (*domain.State, error) {
		next, err := s.engine.Advance(ctx, st)
		if err != nil {
			return nil, err
		}
		return s.engine.Settle(ctx, next)
	})
}

func (s *Server) handleChoose(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (SessionResponse, error) {
	raw, ok := args["index"].(float64)
	if !ok {
		return SessionResponse{}, errors.New("index is required")
	}
	if raw != math.Trunc(raw) || math.IsInf(raw, 0) {
		return SessionResponse{}, fmt.Errorf("index must be a whole number, got %v", raw)
	}
	index := int(raw)
	return s.update(ctx, args, func(ctx context.Context, st *domain.State) (*domain.State, error) {
		next, err := s.engine.Choose(ctx, st, index)
		if err != nil {
			return nil, err
		}
		return s.engine.Settle(ctx, next)
	})
}

func (s *Server) update(ctx context.Context, args map[string]any, next session.Transition) (SessionResponse, error) {
	id, err := s.sessionID(args)
	if err != nil {
		return SessionResponse{}, err
	}
	_, after, err := s.sessions.Update(ctx, id, next)
	if err != nil {
		return SessionResponse{}, err
	}
	return s.respond(after), nil
}

func (s *Server) handleView(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (SessionResponse, error) {
	id, err := s.sessionID(args)
	if err != nil {
		return SessionResponse{}, err
	}
	st, err := s.sessions.Load(ctx, id)
	if err != nil {
		return SessionResponse{}, err
	}
	return s.respond(st), nil
}

func (s *Server) handleClose(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (SessionResponse, error) {
	id, err := s.sessionID(args)
	if err != nil {
		return SessionResponse{}, err
	}
	_, after, err := s.sessions.Close(ctx, id, s.engine.Close)
	if err != nil {
		return SessionResponse{}, err
	}
	return s.respond(after), nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if request.GetString("format", "json") == "mermaid" {
		overlay := &graph.GraphOverlay{EntryNode: s.engine.EntryNode()}
		return mcp.NewToolResultText(graph.GenerateMermaid(s.engine.Inspect(), overlay)), nil
	}
	data, err := json.Marshal(s.engine.Inspect())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readGraph(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(s.engine.Inspect())
	if err != nil {
		return nil, fmt.Errorf("failed to inspect graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GraphURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
