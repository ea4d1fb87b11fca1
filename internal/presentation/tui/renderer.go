package tui

import (
	"hash/fnv"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a markdown renderer for dialogue text. Wrap of zero
// keeps glamour's default width. If glamour cannot be set up the text is
// returned unchanged.
func NewRenderer(wrap int) func(string) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if wrap > 0 {
		opts = append(opts, glamour.WithWordWrap(wrap))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// speakerPalette colours character names; a name always maps to the same colour.
var speakerPalette = []string{"#818cf8", "#34d399", "#fbbf24", "#f472b6", "#60a5fa", "#fb7185"}

// SpeakerStyler returns a function painting character names for w.
func SpeakerStyler(w io.Writer) func(name string) string {
	out := termenv.NewOutput(w)
	return func(name string) string {
		h := fnv.New32a()
		_, _ = h.Write([]byte(name))
		color := speakerPalette[int(h.Sum32()%uint32(len(speakerPalette)))]
		return out.String(name).Foreground(out.Color(color)).Bold().String()
	}
}
