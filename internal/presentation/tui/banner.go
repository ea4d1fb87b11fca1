package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`  ___ _                                      `, "#818cf8"},
	{` / __| |_ ___ _ _ _  ___ __ _____ __ ___ _____ `, "#a78bfa"},
	{` \__ \  _/ _ \ '_| || \ V  V / -_) _` + "`" + ` \ V / -_)`, "#c084fc"},
	{` |___/\__\___/_|  \_, |\_/\_/\___\__,_|\_/\___|`, "#e879f9"},
	{`                  |__/                         `, "#f472b6"},
}

// PrintBanner writes the storyweave banner and version to w, coloured for
// the terminal's capabilities.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
