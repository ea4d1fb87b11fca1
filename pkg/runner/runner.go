package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/storyweave/internal/logging"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/ports"
)

// Player is the slice of the engine the Runner drives.
type Player interface {
	Start(ctx context.Context, sessionID string) (*domain.State, error)
	Advance(ctx context.Context, state *domain.State) (*domain.State, error)
	Choose(ctx context.Context, state *domain.State, index int) (*domain.State, error)
	Step(ctx context.Context, state *domain.State) (*domain.State, error)
	Close(ctx context.Context, state *domain.State) (*domain.State, error)
	View(state *domain.State) domain.View
}

// ErrNoEngine is returned by Run when no engine was configured.
var ErrNoEngine = errors.New("runner: no engine configured")

// Runner handles the playback loop using the provided IO.
type Runner struct {
	// Handler is the strategy for IO. If nil, a TextHandler over stdin/stdout is used.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Store persists the session after every transition.
	// If nil, sessions are ephemeral.
	Store     ports.StateStore
	SessionID string

	AutoDelay time.Duration
	Overrides map[string]string

	engine       Player
	initialState *domain.State
}

// NewRunner creates a Runner with a stdin/stdout text handler unless an
// option says otherwise.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger:    logging.NewNop(),
		AutoDelay: DefaultAutoDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run plays until the session ends, the reader quits, input runs out or ctx
// is done. It returns the last state reached. A finished or quit session is
// removed from the store; an interrupted one stays there to be resumed.
func (r *Runner) Run(ctx context.Context) (*domain.State, error) {
	if r.engine == nil {
		return nil, ErrNoEngine
	}

	signals := NewSignalManager(ctx)
	defer signals.Stop()

	state, err := r.resolveInitialState(ctx)
	if err != nil {
		return nil, err
	}

	for {
		loopCtx := signals.Context()

		view := r.engine.View(state)
		if err := r.Handler.Output(loopCtx, view); err != nil {
			return state, fmt.Errorf("output error: %w", err)
		}
		if view.Terminal {
			return state, r.finish(ctx, state)
		}
		if err := r.save(ctx, state); err != nil {
			return state, err
		}

		var next *domain.State
		if view.Awaiting == domain.AwaitAuto {
			if err := r.pause(loopCtx); err != nil {
				return state, r.interrupted(ctx, signals, state, err)
			}
			next, err = r.engine.Step(loopCtx, state)
		} else {
			var cmd Command
			cmd, err = r.Handler.Input(loopCtx)
			if err != nil {
				signals.CheckRace()
				if errors.Is(err, io.EOF) {
					r.Logger.Debug("input closed", "session_id", state.SessionID)
					return state, nil
				}
				return state, r.interrupted(ctx, signals, state, err)
			}
			next, err = r.apply(loopCtx, state, view, cmd)
		}
		if err != nil {
			return state, fmt.Errorf("playback error: %w", err)
		}
		state = next
	}
}

func (r *Runner) apply(ctx context.Context, state *domain.State, view domain.View, cmd Command) (*domain.State, error) {
	switch {
	case cmd.Quit:
		return r.engine.Close(ctx, state)
	case cmd.Choose != nil:
		if view.Awaiting != domain.AwaitChoice {
			_ = r.Handler.SystemOutput(ctx, "there is nothing to choose here")
			return state, nil
		}
		return r.engine.Choose(ctx, state, *cmd.Choose)
	case cmd.Advance:
		if view.Awaiting != domain.AwaitAdvance {
			_ = r.Handler.SystemOutput(ctx, "pick a choice to continue")
			return state, nil
		}
		return r.engine.Advance(ctx, state)
	}
	return state, nil
}

// interrupted keeps the session for a later resume. A cancelled parent is
// returned as an error; a signal is a normal stop.
func (r *Runner) interrupted(ctx context.Context, signals *SignalManager, state *domain.State, cause error) error {
	if err := r.save(ctx, state); err != nil {
		return err
	}
	if signals.Interrupted() {
		r.Logger.Debug("playback interrupted", "session_id", state.SessionID, "node_id", state.CurrentNodeID)
		_ = r.Handler.SystemOutput(context.WithoutCancel(ctx), "interrupted")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("input error: %w", cause)
}

func (r *Runner) pause(ctx context.Context) error {
	if r.AutoDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.AutoDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Runner) resolveInitialState(ctx context.Context) (*domain.State, error) {
	if r.initialState != nil {
		return r.initialState, nil
	}

	if r.Store != nil && r.SessionID != "" {
		state, err := r.Store.Load(ctx, r.SessionID)
		if err == nil {
			r.Logger.Info("resuming session", "session_id", r.SessionID, "node_id", state.CurrentNodeID)
			_ = r.Handler.SystemOutput(ctx, fmt.Sprintf("resuming session %s", r.SessionID))
			return state, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to load session %s: %w", r.SessionID, err)
		}
	}

	state, err := r.engine.Start(ctx, r.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial state: %w", err)
	}
	if err := OverrideVariables(state, r.Overrides); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *Runner) save(ctx context.Context, state *domain.State) error {
	if r.Store == nil || r.SessionID == "" {
		return nil
	}
	if err := r.Store.Save(context.WithoutCancel(ctx), r.SessionID, state); err != nil {
		return fmt.Errorf("critical persistence error: %w", err)
	}
	r.Logger.Debug("state saved", "session_id", r.SessionID, "node_id", state.CurrentNodeID)
	return nil
}

func (r *Runner) finish(ctx context.Context, state *domain.State) error {
	if r.Store == nil || r.SessionID == "" {
		return nil
	}
	if err := r.Store.Delete(context.WithoutCancel(ctx), r.SessionID); err != nil {
		return fmt.Errorf("failed to remove finished session: %w", err)
	}
	return nil
}

// OverrideVariables sets initial values by variable name, coercing each raw
// string to the variable's declared kind. Unknown names are an error.
func OverrideVariables(state *domain.State, overrides map[string]string) error {
	for name, raw := range overrides {
		found := false
		for i, v := range state.Variables {
			if v.Name == name {
				state.Variables[i].Value = domain.Coerce(raw, v.Value.Kind())
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", domain.ErrVariableNotFound, name)
		}
	}
	return nil
}
