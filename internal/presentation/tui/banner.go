package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the cafe banner, coloured for the terminal's profile.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"   ___ __ _ / _| ___ ", "#d6a77a"},
		{"  / __/ _` | |_ / _ \\", "#b98052"},
		{" | (_| (_| |  _|  __/", "#9c6233"},
		{"  \\___\\__,_|_|  \\___|", "#7b4a24"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  graph ⇄ automation YAML  "+version).Faint())
	fmt.Fprintln(w)
}
