package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the sluice banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.Profile
	lines := []struct {
		text, color string
	}{
		{`      _       _          `, "#38bdf8"},
		{`  ___| |_   _(_) ___ ___ `, "#60a5fa"},
		{` / __| | | | | |/ __/ _ \`, "#818cf8"},
		{` \__ \ | |_| | | (_|  __/`, "#a78bfa"},
		{` |___/_|\__,_|_|\___\___|`, "#c084fc"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
