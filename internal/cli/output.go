package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/aretw0/hashfsm/internal/presentation/graph"
	"github.com/aretw0/hashfsm/internal/presentation/tui"
	"github.com/aretw0/hashfsm/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by -o.
const (
	FormatAuto    = ""
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatPretty  = "pretty"
	FormatMermaid = "mermaid"
)

// ResolveFormat picks pretty for terminals and json otherwise when format is empty.
func ResolveFormat(w io.Writer, format string) string {
	if format != FormatAuto {
		return format
	}
	if tui.IsTerminal(w) {
		return FormatPretty
	}
	return FormatJSON
}

// WriteDefinition prints def in the requested format.
func WriteDefinition(w io.Writer, def *domain.Definition, format string) error {
	switch ResolveFormat(w, format) {
	case FormatJSON:
		data, err := domain.Encode(def)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(def)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatPretty:
		out, err := tui.RenderDefinition(def)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, out)
		return err
	case FormatMermaid:
		_, err := fmt.Fprint(w, graph.GenerateMermaid(def, nil))
		return err
	}
	return fmt.Errorf("unknown output format %q (want json, yaml, pretty or mermaid)", format)
}

// WriteBindings prints the prefix bindings one per line, sorted by prefix,
// or as a JSON object.
func WriteBindings(w io.Writer, bindings map[string]string, format string) error {
	if ResolveFormat(w, format) == FormatJSON {
		return json.NewEncoder(w).Encode(bindings)
	}
	prefixes := make([]string, 0, len(bindings))
	for p := range bindings {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", p, tui.Highlight(w, bindings[p])); err != nil {
			return err
		}
	}
	return nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
