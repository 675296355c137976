package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII art banner, colored when the terminal supports it.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  ____            _            ", "#34d399"},
		{" |  _ \\ __ _ _ __| | ___ _   _ ", "#2dd4bf"},
		{" | |_) / _` | '__| |/ _ \\ | | |", "#22d3ee"},
		{" |  __/ (_| | |  | |  __/ |_| |", "#38bdf8"},
		{" |_|   \\__,_|_|  |_|\\___|\\__, |", "#60a5fa"},
		{"                         |___/ ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
