package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/storyweave"
	"github.com/aretw0/storyweave/internal/config"
	"github.com/aretw0/storyweave/pkg/adapters/file"
	"github.com/aretw0/storyweave/pkg/adapters/loam"
	"github.com/aretw0/storyweave/pkg/adapters/memory"
	"github.com/aretw0/storyweave/pkg/adapters/redis"
	"github.com/aretw0/storyweave/pkg/adapters/sqlite"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/observability"
	"github.com/aretw0/storyweave/pkg/persistence/middleware"
	"github.com/aretw0/storyweave/pkg/ports"
)

// conventionalNames are tried, in order, when no graph is named and the
// directory holds several.
var conventionalNames = []string{"main", "story", "index"}

// OpenSource returns the graph source configured for cfg.Dir.
func OpenSource(cfg *config.Config, logger *slog.Logger) (ports.GraphSource, error) {
	switch cfg.Source {
	case config.SourceLoam:
		src, err := loam.Open(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceFile, "":
		return file.NewSource(cfg.Dir,
			file.WithLogger(logger),
			file.WithIgnore(config.FileNames...),
		), nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}

// ResolveGraphName picks the graph to play when the user did not name one:
// the only graph, a conventional name, or the graph named after the directory.
func ResolveGraphName(ctx context.Context, source ports.GraphSource, dir, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	names, err := source.ListGraphs(ctx)
	if err != nil {
		return "", err
	}
	switch len(names) {
	case 0:
		return "", fmt.Errorf("%w: no graphs in %s", domain.ErrGraphNotFound, dir)
	case 1:
		return names[0], nil
	}

	candidates := conventionalNames
	if abs, err := filepath.Abs(dir); err == nil {
		candidates = append(slices.Clone(conventionalNames), filepath.Base(abs))
	}
	for _, c := range candidates {
		if slices.Contains(names, c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("several graphs found, name one of: %s", strings.Join(names, ", "))
}

// EngineOptions are the CLI-level knobs that shape an engine.
type EngineOptions struct {
	Debug   bool
	Strict  bool
	Metrics *observability.Metrics
}

// LoadEngine resolves and loads a graph into an engine with standard CLI
// conventions: log hooks in debug mode, metric hooks when metrics are on.
func LoadEngine(ctx context.Context, cfg *config.Config, source ports.GraphSource, name string, logger *slog.Logger, opts EngineOptions) (*storyweave.Engine, error) {
	resolved, err := ResolveGraphName(ctx, source, cfg.Dir, name)
	if err != nil {
		return nil, err
	}

	engineOpts := []storyweave.Option{
		storyweave.WithLogger(logger),
		storyweave.WithEntryNode(cfg.Entry),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, storyweave.WithLifecycleHooks(observability.LogHooks(logger)))
	}
	if opts.Metrics != nil {
		engineOpts = append(engineOpts, storyweave.WithLifecycleHooks(opts.Metrics.Hooks()))
	}
	if opts.Strict {
		engineOpts = append(engineOpts, storyweave.WithStrictValidation())
	}

	engine, err := storyweave.Load(ctx, source, resolved, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// Store bundles a session store with what came with it.
type Store struct {
	ports.StateStore
	// Locker is set for backends shared between replicas.
	Locker ports.DistributedLocker
	closer io.Closer
}

// Close releases the backend connection, if any.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// OpenStore opens the session store named by cfg.Store, wrapped with the
// configured redaction and encryption. Relative paths are resolved against
// the story directory.
func OpenStore(cfg *config.Config) (*Store, error) {
	mws, err := storeMiddleware(cfg)
	if err != nil {
		return nil, err
	}
	store, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	store.StateStore = middleware.Chain(store.StateStore, mws...)
	return store, nil
}

func storeMiddleware(cfg *config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.RedactVariables) > 0 {
		mw, err := middleware.NewRedactionMiddleware(cfg.RedactVariables)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != "" {
		active, err := middleware.ParseKey(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		encCfg := middleware.EncryptionConfig{ActiveKey: active}
		for i, raw := range cfg.EncryptionFallbackKeys {
			k, err := middleware.ParseKey(raw)
			if err != nil {
				return nil, fmt.Errorf("fallback key %d: %w", i, err)
			}
			encCfg.FallbackKeys = append(encCfg.FallbackKeys, k)
		}
		mw, err := middleware.NewEncryptionMiddleware(encCfg)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

func openBackend(cfg *config.Config) (*Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return &Store{StateStore: memory.NewStore()}, nil
	case config.StoreFile:
		return &Store{StateStore: file.NewStore(inDir(cfg.Dir, cfg.SessionDir))}, nil
	case config.StoreRedis:
		rs := redis.New(cfg.RedisAddr, "", 0, redis.WithTTL(cfg.SessionTTL), redis.WithPrefix(cfg.RedisPrefix))
		return &Store{
			StateStore: rs,
			Locker:     redis.NewLocker(rs.Client(), rs.Prefix()),
			closer:     rs,
		}, nil
	case config.StoreSQLite:
		path := inDir(cfg.Dir, cfg.SQLitePath)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		ss, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return &Store{StateStore: ss, closer: ss}, nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func inDir(dir, path string) string {
	if filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(dir, path)
}
