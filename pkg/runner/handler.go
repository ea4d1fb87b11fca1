package runner

import (
	"context"

	"github.com/aretw0/storyweave/pkg/domain"
)

// IOHandler defines the strategy for interacting with the reader.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents a view of the current state.
	Output(ctx context.Context, view domain.View) error

	// Input reads the reader's next command. It returns io.EOF when the
	// input is exhausted.
	Input(ctx context.Context) (Command, error)

	// SystemOutput presents a meta-message (e.g. an invalid command or a resume notice).
	// This is distinct from story content.
	SystemOutput(ctx context.Context, msg string) error
}
