package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned for input that is not a playback command.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one reader action. Exactly one field is meaningful.
type Command struct {
	Advance bool `json:"advance,omitempty"`
	Choose  *int `json:"choose,omitempty"`
	Quit    bool `json:"quit,omitempty"`
}

// AdvanceCommand moves past a dialogue line.
func AdvanceCommand() Command { return Command{Advance: true} }

// ChooseCommand picks the choice with the given index.
func ChooseCommand(index int) Command { return Command{Choose: &index} }

// QuitCommand ends the session.
func QuitCommand() Command { return Command{Quit: true} }

// ParseCommand reads a command from a line of input. Lines starting with "{"
// are decoded as JSON; anything else uses the plain words: an empty line,
// "n" or "next" advance, "q", "quit" or "exit" quit, and a number chooses.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		var cmd Command
		if err := json.Unmarshal([]byte(line), &cmd); err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrUnknownCommand, err)
		}
		if !cmd.Advance && !cmd.Quit && cmd.Choose == nil {
			return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, line)
		}
		return cmd, nil
	}

	switch strings.ToLower(line) {
	case "", "n", "next":
		return AdvanceCommand(), nil
	case "q", "quit", "exit":
		return QuitCommand(), nil
	}
	if n, err := strconv.Atoi(line); err == nil {
		return ChooseCommand(n), nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
}
