package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// It detects a light or dark background; wordWrap <= 0 keeps glamour's default.
func NewRenderer(wordWrap int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if wordWrap > 0 {
		opts = append(opts, glamour.WithWordWrap(wordWrap))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	return r.Render, nil
}

// DefinitionMarkdown describes a Definition as a Markdown document: a
// heading, the governed prefix and field, the states and a transition table.
func DefinitionMarkdown(def *domain.Definition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", def.Name)
	fmt.Fprintf(&sb, "Governs keys `%s*` through the `%s` field.\n\n", def.Prefix, def.Field)

	sb.WriteString("## States\n\n")
	for i, s := range def.States {
		if i == 0 {
			fmt.Fprintf(&sb, "- **%s** (initial)\n", s)
			continue
		}
		fmt.Fprintf(&sb, "- %s\n", s)
	}

	sb.WriteString("\n## Events\n\n")
	sb.WriteString("| Event | From | To |\n")
	sb.WriteString("|---|---|---|\n")
	for _, ev := range def.Events {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", ev.Name, strings.Join(ev.From, ", "), ev.To)
	}
	return sb.String()
}

// RenderDefinition renders DefinitionMarkdown for the terminal.
func RenderDefinition(def *domain.Definition) (string, error) {
	render, err := NewRenderer(0)
	if err != nil {
		return "", err
	}
	return render(DefinitionMarkdown(def))
}
