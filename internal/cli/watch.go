package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/storyweave/internal/config"
	"github.com/aretw0/storyweave/pkg/ports"
	"github.com/aretw0/storyweave/pkg/runner"
)

// playWatch plays in development mode: every change to the source restarts
// the runner on a freshly loaded engine, resuming the same session.
func playWatch(ctx context.Context, cfg *config.Config, source ports.GraphSource, store *Store, handler runner.IOHandler, logger *slog.Logger, opts PlayOptions) error {
	watchable, ok := source.(ports.Watchable)
	if !ok {
		return fmt.Errorf("the %s source cannot be watched", cfg.Source)
	}
	changes, err := watchable.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Dir, err)
	}

	logger.Info("starting watcher", "path", cfg.Dir, "session_id", opts.SessionID)
	if !opts.JSON {
		printSystemMessage(opts.Out, "Watching '%s' in session '%s'.", cfg.Dir, opts.SessionID)
	}

	for {
		reload, err := watchIteration(ctx, cfg, source, store, handler, logger, opts, changes)
		if err != nil || !reload {
			return err
		}
		logger.Info("watcher restarting")
	}
}

// watchIteration plays once and reports whether to go round again.
func watchIteration(ctx context.Context, cfg *config.Config, source ports.GraphSource, store *Store, handler runner.IOHandler, logger *slog.Logger, opts PlayOptions, changes <-chan struct{}) (bool, error) {
	engine, err := LoadEngine(ctx, cfg, source, opts.Graph, logger, EngineOptions{Debug: opts.Debug})
	if err != nil {
		logger.Error("engine initialization failed", "err", err)
		_ = handler.SystemOutput(ctx, fmt.Sprintf("%v (waiting for a fix)", err))
		return waitForChange(ctx, changes), nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	reloaded := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
		case _, ok := <-changes:
			if ok {
				close(reloaded)
			}
			cancel()
		}
	}()

	r := runner.NewRunner(playRunnerOptions(cfg, engine, store, handler, logger, opts)...)
	state, runErr := r.Run(runCtx)

	select {
	case <-reloaded:
		_ = handler.SystemOutput(ctx, "change detected, reloading")
		return true, nil
	default:
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
			return false, nil
		}
		return false, runErr
	}
	if state == nil || !state.Terminated() {
		// Interrupted or out of input.
		reportStop(opts, state)
		return false, nil
	}

	_ = handler.SystemOutput(ctx, "finished, waiting for changes")
	select {
	case <-ctx.Done():
		return false, nil
	case <-reloaded:
		return true, nil
	}
}

func waitForChange(ctx context.Context, changes <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case _, ok := <-changes:
		return ok
	}
}
