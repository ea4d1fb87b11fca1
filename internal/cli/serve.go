package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/storyweave"
	"github.com/aretw0/storyweave/internal/config"
	"github.com/aretw0/storyweave/internal/logging"
	httpadapter "github.com/aretw0/storyweave/pkg/adapters/http"
	"github.com/aretw0/storyweave/pkg/adapters/mcp"
	"github.com/aretw0/storyweave/pkg/observability"
	"github.com/aretw0/storyweave/pkg/ports"
	"github.com/aretw0/storyweave/pkg/session"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServeOptions configures the HTTP server.
type ServeOptions struct {
	Graph   string
	Watch   bool
	Metrics bool
	Strict  bool
}

// Serve runs the HTTP API until ctx is done.
func Serve(ctx context.Context, cfg *config.Config, opts ServeOptions) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewJSON(os.Stderr, level)

	var metrics *observability.Metrics
	if opts.Metrics {
		if metrics, err = observability.NewMetrics(nil); err != nil {
			return fmt.Errorf("failed to set up metrics: %w", err)
		}
	}

	source, err := OpenSource(cfg, logger)
	if err != nil {
		return err
	}
	name, err := ResolveGraphName(ctx, source, cfg.Dir, opts.Graph)
	if err != nil {
		return err
	}
	engineOpts := EngineOptions{Debug: level <= slog.LevelDebug, Strict: opts.Strict, Metrics: metrics}
	engine, err := LoadEngine(ctx, cfg, source, name, logger, engineOpts)
	if err != nil {
		return err
	}

	store, err := OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	srvOpts := []httpadapter.Option{
		httpadapter.WithLogger(logger),
		httpadapter.WithVersion(storyweave.Version),
	}
	if metrics != nil {
		srvOpts = append(srvOpts, httpadapter.WithMetrics(metrics))
	}
	srv := httpadapter.NewServer(engine, newSessionManager(store, logger), srvOpts...)

	var background []func(context.Context) error
	if opts.Watch {
		reload := func(ctx context.Context) (*storyweave.Engine, error) {
			return LoadEngine(ctx, cfg, source, name, logger, engineOpts)
		}
		background = append(background, func(ctx context.Context) error {
			return reloadOnChange(ctx, source, logger, reload, func(e *storyweave.Engine) { srv.SetPlayer(e) })
		})
	}

	logger.Info("serving graph", "graph", name, "dir", cfg.Dir, "store", cfg.Store, "port", cfg.Port)
	return srv.Serve(ctx, fmt.Sprintf(":%d", cfg.Port), background...)
}

// MCPOptions configures the MCP server.
type MCPOptions struct {
	Graph     string
	Transport string
}

// ServeMCP runs the MCP server over the chosen transport. Logs always go to
// stderr so they cannot corrupt JSON-RPC on stdout.
func ServeMCP(ctx context.Context, cfg *config.Config, opts MCPOptions) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level)

	source, err := OpenSource(cfg, logger)
	if err != nil {
		return err
	}
	engine, err := LoadEngine(ctx, cfg, source, opts.Graph, logger, EngineOptions{})
	if err != nil {
		return err
	}

	store, err := OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := mcp.NewServer(engine, newSessionManager(store, logger), storyweave.Version, mcp.WithLogger(logger))

	switch opts.Transport {
	case TransportStdio, "":
		logger.Info("starting MCP server", "transport", TransportStdio, "graph", engine.Name)
		return srv.ServeStdio()
	case TransportSSE:
		logger.Info("starting MCP server", "transport", TransportSSE, "graph", engine.Name, "port", cfg.Port)
		return srv.ServeSSE(ctx, cfg.Port)
	}
	return fmt.Errorf("unknown transport %q (supported: stdio, sse)", opts.Transport)
}

func newSessionManager(store *Store, logger *slog.Logger) *session.Manager {
	opts := []session.Option{session.WithLogger(logger)}
	if store.Locker != nil {
		opts = append(opts, session.WithLocker(store.Locker))
	}
	return session.NewManager(store.StateStore, opts...)
}

// reloadOnChange rebuilds the engine whenever source reports a change and
// hands it to swap. A graph that fails to load keeps the previous engine.
func reloadOnChange(ctx context.Context, source ports.GraphSource, logger *slog.Logger, load func(context.Context) (*storyweave.Engine, error), swap func(*storyweave.Engine)) error {
	watchable, ok := source.(ports.Watchable)
	if !ok {
		logger.Warn("graph source does not support watching; hot reload disabled")
		return nil
	}
	changes, err := watchable.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch graphs: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			engine, err := load(ctx)
			if err != nil {
				logger.Error("graph reload failed, keeping previous version", "err", err)
				continue
			}
			swap(engine)
			logger.Info("graph reloaded", "graph", engine.Name)
		}
	}
}
