package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/ports"
)

// DefaultAutoDelay is how long an automatic node stays on screen before the
// runner steps past it.
const DefaultAutoDelay = 50 * time.Millisecond

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStore configures the StateStore for persistence.
func WithStore(store ports.StateStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSessionID sets the session ID used for persistence.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithAutoDelay sets the pause before automatic nodes are stepped.
// Zero steps immediately.
func WithAutoDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.AutoDelay = d
	}
}

// WithVariables overrides initial variable values by name when a new session
// starts. Values are coerced to each variable's declared kind.
func WithVariables(overrides map[string]string) Option {
	return func(r *Runner) {
		r.Overrides = overrides
	}
}

// WithEngine configures the engine to play.
func WithEngine(engine Player) Option {
	return func(r *Runner) {
		r.engine = engine
	}
}

// WithInitialState resumes from state instead of starting a new session.
func WithInitialState(state *domain.State) Option {
	return func(r *Runner) {
		r.initialState = state
	}
}
