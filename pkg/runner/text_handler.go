package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// ContentRenderer transforms dialogue text before it is printed, e.g.
// markdown to ANSI.
type ContentRenderer func(string) (string, error)

// TextHandler implements the interactive text interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	// Speaker paints character names. Nil prints them as-is.
	Speaker func(string) string
	// Debug prints the variables panel after every view.
	Debug bool

	mu   sync.Mutex
	last domain.View

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the dialogue renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithSpeakerStyle configures how character names are painted.
func WithSpeakerStyle(style func(string) string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Speaker = style
	}
}

// WithDebugPanel enables the variables panel.
func WithDebugPanel(enabled bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Debug = enabled
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour ctx.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff so a persistent read failure does not spin.
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Output prints the view: the dialogue line, the numbered choices, an
// evaluating frame for automatic nodes or the ending.
func (h *TextHandler) Output(ctx context.Context, view domain.View) error {
	h.mu.Lock()
	h.last = view
	h.mu.Unlock()

	switch {
	case view.Terminal:
		fmt.Fprintln(h.Writer, "\n--- The End ---")
		if h.Debug && view.Reason != domain.ReasonNone {
			fmt.Fprintf(h.Writer, "(%s)\n", view.Reason)
		}
	case view.Node != nil:
		lines := domain.VisitNode[[]string](view.Node.Data, textView{h: h, view: view})
		for _, line := range lines {
			fmt.Fprintln(h.Writer, line)
		}
	}

	if h.Debug {
		h.printVariables(view.Variables)
	}
	return nil
}

type textView struct {
	h    *TextHandler
	view domain.View
}

func (v textView) Dialogue(d domain.DialogueData) []string {
	var lines []string
	if d.Character != "" {
		name := d.Character
		if v.h.Speaker != nil {
			name = v.h.Speaker(name)
		}
		lines = append(lines, "\n"+name)
	}
	text := d.Dialogue
	if text == "" {
		text = "..."
	}
	if v.h.Renderer != nil {
		if rendered, err := v.h.Renderer(text); err == nil {
			text = rendered
		}
	}
	return append(lines, strings.TrimSpace(text))
}

func (v textView) Choice(domain.ChoiceData) []string {
	if len(v.view.Choices) == 0 {
		return []string{"(no choices available)"}
	}
	lines := make([]string, 0, len(v.view.Choices))
	for i, c := range v.view.Choices {
		lines = append(lines, fmt.Sprintf("  %d) %s", i+1, c.Label))
	}
	return lines
}

func (v textView) Condition(d domain.ConditionData) []string {
	if !v.h.Debug {
		return nil
	}
	value := ""
	if d.Value != nil {
		value = d.Value.String()
	}
	return []string{fmt.Sprintf("... evaluating %s %s %s", v.variableName(d.VariableID), d.Operator, value)}
}

func (v textView) VariableSet(d domain.VariableSetData) []string {
	if !v.h.Debug {
		return nil
	}
	value := ""
	if d.NewValue != nil {
		value = *d.NewValue
	}
	return []string{fmt.Sprintf("... setting %s = %s", v.variableName(d.VariableID), value)}
}

func (v textView) variableName(id string) string {
	if variable, ok := domain.FindVariable(v.view.Variables, id); ok {
		return variable.Name
	}
	return "?"
}

func (h *TextHandler) printVariables(vars []domain.Variable) {
	if len(vars) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(h.Writer)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Variable", "Kind", "Value"})
	for _, v := range vars {
		t.AppendRow(table.Row{v.Name, v.Value.Kind(), v.Value.String()})
	}
	t.Render()
}

// Input reads the next command. Choice numbers are the 1-based positions
// printed by Output. Invalid input is reported and read again.
func (h *TextHandler) Input(ctx context.Context) (Command, error) {
	h.initPump()

	h.mu.Lock()
	view := h.last
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return Command{}, ctx.Err()
		default:
			fmt.Fprint(h.Writer, prompt(view))
		}

		select {
		case <-ctx.Done():
			return Command{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return Command{}, io.EOF
			}
			if res.err != nil {
				return Command{}, res.err
			}

			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			cmd, err := resolveTextCommand(clean, view)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return cmd, nil
		}
	}
}

func prompt(view domain.View) string {
	if view.Awaiting == domain.AwaitAdvance {
		return "[Enter] Next > "
	}
	return "> "
}

func resolveTextCommand(line string, view domain.View) (Command, error) {
	cmd, err := ParseCommand(line)
	if err != nil {
		return Command{}, err
	}
	if cmd.Choose == nil || strings.HasPrefix(line, "{") {
		if cmd.Advance && view.Awaiting == domain.AwaitChoice {
			return Command{}, errors.New("pick a choice by number")
		}
		return cmd, nil
	}
	if view.Awaiting != domain.AwaitChoice {
		return Command{}, errors.New("there is nothing to choose")
	}
	n := *cmd.Choose
	if n < 1 || n > len(view.Choices) {
		return Command{}, fmt.Errorf("choose a number between 1 and %d", len(view.Choices))
	}
	return ChooseCommand(view.Choices[n-1].Index), nil
}

// SystemOutput prints a meta-message with a prefix.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return nil
}
