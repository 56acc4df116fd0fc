package tui

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Verdict renders a boolean answer: green "yes" or red "no". Colors are only
// emitted when w supports them.
func Verdict(w io.Writer, ok bool) string {
	out := termenv.NewOutput(w)
	if ok {
		return out.String("yes").Foreground(out.Color("#22c55e")).String()
	}
	return out.String("no").Foreground(out.Color("#ef4444")).String()
}

// Highlight renders s in bold when w supports styling.
func Highlight(w io.Writer, s string) string {
	return termenv.NewOutput(w).String(s).Bold().String()
}
