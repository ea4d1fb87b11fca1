package cli

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/storyweave/internal/config"
	"github.com/aretw0/storyweave/internal/logging"
	"github.com/aretw0/storyweave/internal/presentation/tui"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/runner"
)

// PlayOptions contains all the configuration for the play command.
type PlayOptions struct {
	Graph     string
	JSON      bool
	Debug     bool
	Watch     bool
	SessionID string
	// Fresh discards a saved session before playing.
	Fresh bool
	// Vars overrides initial variable values by name.
	Vars map[string]string

	In  io.Reader
	Out io.Writer
}

func (o *PlayOptions) defaults() {
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
}

// Play runs a graph in the terminal (or as NDJSON) until the story ends, the
// reader quits or input runs out.
func Play(ctx context.Context, cfg *config.Config, opts PlayOptions) error {
	opts.defaults()
	runner.DefaultMaxInputSize = cfg.MaxInputSize

	logger, err := playLogger(cfg, opts.Debug)
	if err != nil {
		return err
	}

	source, err := OpenSource(cfg, logger)
	if err != nil {
		return err
	}

	if opts.Watch && opts.SessionID == "" {
		abs, _ := filepath.Abs(cfg.Dir)
		hash := md5.Sum([]byte(abs))
		opts.SessionID = fmt.Sprintf("watch-%x", hash[:4])
	}

	store, err := openPlayStore(cfg, opts.SessionID)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.Fresh && opts.SessionID != "" {
		if err := store.Delete(ctx, opts.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to reset session: %w", err)
		}
	}

	handler := newPlayHandler(opts)
	if opts.Watch {
		return playWatch(ctx, cfg, source, store, handler, logger, opts)
	}

	engine, err := LoadEngine(ctx, cfg, source, opts.Graph, logger, EngineOptions{Debug: opts.Debug})
	if err != nil {
		return err
	}

	r := runner.NewRunner(playRunnerOptions(cfg, engine, store, handler, logger, opts)...)
	state, err := r.Run(ctx)
	if err != nil {
		return err
	}
	reportStop(opts, state)
	return nil
}

// playLogger keeps stderr quiet below warnings unless debugging, so log
// lines do not interleave with the story.
func playLogger(cfg *config.Config, debug bool) (*slog.Logger, error) {
	if debug {
		return createLogger(cfg, true)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(max(level, slog.LevelWarn)), nil
}

// openPlayStore uses the configured backend, except that a named session on
// the memory store would not survive the process, so it goes to files.
func openPlayStore(cfg *config.Config, sessionID string) (*Store, error) {
	if sessionID != "" && cfg.Store == config.StoreMemory {
		fileCfg := *cfg
		fileCfg.Store = config.StoreFile
		return OpenStore(&fileCfg)
	}
	return OpenStore(cfg)
}

func newPlayHandler(opts PlayOptions) runner.IOHandler {
	if opts.JSON {
		return runner.NewJSONHandler(opts.In, opts.Out)
	}
	handlerOpts := []runner.TextHandlerOption{runner.WithDebugPanel(opts.Debug)}
	if runner.IsTerminal(opts.Out) {
		handlerOpts = append(handlerOpts,
			runner.WithTextHandlerRenderer(tui.NewRenderer(0)),
			runner.WithSpeakerStyle(tui.SpeakerStyler(opts.Out)),
		)
	}
	return runner.NewTextHandler(opts.In, opts.Out, handlerOpts...)
}

func playRunnerOptions(cfg *config.Config, engine runner.Player, store *Store, handler runner.IOHandler, logger *slog.Logger, opts PlayOptions) []runner.Option {
	runnerOpts := []runner.Option{
		runner.WithEngine(engine),
		runner.WithInputHandler(handler),
		runner.WithLogger(logger),
		runner.WithAutoDelay(cfg.AutoDelay),
		runner.WithVariables(opts.Vars),
	}
	if opts.SessionID != "" {
		runnerOpts = append(runnerOpts,
			runner.WithSessionID(opts.SessionID),
			runner.WithStore(store),
		)
	}
	return runnerOpts
}

// reportStop tells the reader where an unfinished session was left.
func reportStop(opts PlayOptions, state *domain.State) {
	if opts.JSON || state == nil || state.Terminated() || opts.SessionID == "" {
		return
	}
	printSystemMessage(opts.Out, "Session '%s' saved at '%s' node.", opts.SessionID, state.CurrentNodeID)
}
