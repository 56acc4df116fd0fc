package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/hashfsm/pkg/domain"
)

// Overlay contains entity data to visualize on the graph.
type Overlay struct {
	CurrentState string
}

// GenerateMermaid produces a Mermaid flowchart of a Definition.
// The initial state is drawn as ((Circle)), every other state as [Rectangle].
// Each event draws one labeled edge per source state. The overlay, if any,
// highlights the entity's current state.
func GenerateMermaid(def *domain.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	initial := def.InitialState()
	for _, state := range def.States {
		opener, closer := "[", "]"
		if state == initial {
			opener, closer = "((", "))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(state), opener, escapeLabel(state), closer))
	}

	for _, ev := range def.Events {
		safeTo := sanitizeMermaidID(ev.To)
		label := escapeLabel(ev.Name)
		for _, from := range ev.From {
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", sanitizeMermaidID(from), label, safeTo))
		}
	}

	if overlay != nil && overlay.CurrentState != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return "s_" + sb.String()
}
