package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the stagegate ASCII banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"      _                             _       ", "#34d399"},
		{"  ___| |_ __ _  __ _  ___  __ _  __ _| |_ ___ ", "#2dd4bf"},
		{" / __| __/ _` |/ _` |/ _ \\/ _` |/ _` | __/ _ \\", "#22d3ee"},
		{" \\__ \\ || (_| | (_| |  __/ (_| | (_| | ||  __/", "#38bdf8"},
		{" |___/\\__\\__,_|\\__, |\\___|\\__, |\\__,_|\\__\\___|", "#60a5fa"},
		{"               |___/      |___/               ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
