package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/storyweave/pkg/domain"
)

// JSONHandler implements IOHandler over NDJSON: one View per line out, one
// Command per line in.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

// Output writes the view as a single JSON line.
func (h *JSONHandler) Output(ctx context.Context, view domain.View) error {
	return h.Encoder.Encode(view)
}

// Input reads one command per line, e.g. {"advance":true}, {"choose":1} or
// {"quit":true}. Plain words are accepted too. Malformed lines are reported
// on the output stream and skipped.
func (h *JSONHandler) Input(ctx context.Context) (Command, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Command{}, err
		}
		text, err := h.Reader.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(text) == "") {
			return Command{}, err
		}

		clean, serr := SanitizeInput(strings.TrimSpace(text))
		if serr == nil {
			var cmd Command
			if cmd, serr = ParseCommand(clean); serr == nil {
				return cmd, nil
			}
		}
		if werr := h.SystemOutput(ctx, serr.Error()); werr != nil {
			return Command{}, werr
		}
		if err == io.EOF {
			return Command{}, io.EOF
		}
	}
}

// SystemOutput writes {"system": msg}.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(map[string]string{"system": msg})
}
