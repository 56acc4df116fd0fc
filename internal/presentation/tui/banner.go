package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the hashfsm ASCII banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Indigo to rose gradient
	lines := []struct{ text, color string }{
		{` _               _      __           `, "#818cf8"},
		{`| |__   __ _ ___| |__  / _|___ _ __ ___  `, "#a78bfa"},
		{`| '_ \ / _' / __| '_ \| |_/ __| '_ ' _ \ `, "#c084fc"},
		{`| | | | (_| \__ \ | | |  _\__ \ | | | | |`, "#e879f9"},
		{`|_| |_|\__,_|___/_| |_|_| |___/_| |_| |_|`, "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+strings.TrimSpace(version)).Foreground(out.Color("#fb7185")).Faint())
	fmt.Fprintln(w)
}
