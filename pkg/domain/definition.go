package domain

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Event is one legal transition arc of a Definition.
// Several source states may collapse onto the same edge.
type Event struct {
	Name string   `json:"name" yaml:"name" mapstructure:"name"`
	From []string `json:"from" yaml:"from" mapstructure:"from"`
	To   string   `json:"to" yaml:"to" mapstructure:"to"`
}

// Definition is the schema of one named state machine.
//
// Every hash whose key starts with Prefix is governed by the Definition and
// carries its current state in the attribute named Field. States[0] is the
// initial state stamped onto new entities.
type Definition struct {
	Name   string   `json:"name" yaml:"name" mapstructure:"name"`
	Prefix string   `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
	Field  string   `json:"field" yaml:"field" mapstructure:"field"`
	States []string `json:"states" yaml:"states" mapstructure:"states"`
	Events []Event  `json:"events" yaml:"events" mapstructure:"events"`
}

// InitialState returns the canonical initial state, or "" for an empty Definition.
func (d *Definition) InitialState() string {
	if len(d.States) == 0 {
		return ""
	}
	return d.States[0]
}

// HasState reports whether state is one of the Definition's states.
func (d *Definition) HasState(state string) bool {
	return slices.Contains(d.States, state)
}

// Event looks up an event by exact name.
func (d *Definition) Event(name string) (*Event, bool) {
	for i := range d.Events {
		if d.Events[i].Name == name {
			return &d.Events[i], true
		}
	}
	return nil, false
}

// Transition returns the event named name when it may fire from current.
func (d *Definition) Transition(name, current string) (*Event, bool) {
	ev, ok := d.Event(name)
	if !ok || !slices.Contains(ev.From, current) {
		return nil, false
	}
	return ev, true
}

// Available lists, in declaration order, the events that may fire from current.
func (d *Definition) Available(current string) []string {
	names := make([]string, 0, len(d.Events))
	for _, ev := range d.Events {
		if slices.Contains(ev.From, current) {
			names = append(names, ev.Name)
		}
	}
	return names
}

// Clone returns a deep copy.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	c := &Definition{
		Name:   d.Name,
		Prefix: d.Prefix,
		Field:  d.Field,
		States: slices.Clone(d.States),
		Events: make([]Event, len(d.Events)),
	}
	for i, ev := range d.Events {
		c.Events[i] = Event{Name: ev.Name, From: slices.Clone(ev.From), To: ev.To}
	}
	return c
}

// Release drops the buffers owned by the Definition.
// The value must not be used afterwards.
func (d *Definition) Release() {
	if d == nil {
		return
	}
	for i := range d.Events {
		d.Events[i].From = nil
	}
	d.States = nil
	d.Events = nil
}

// Validate checks the Definition invariants and reports every violation found.
func (d *Definition) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	// Stored forms are JSON, which cannot carry invalid UTF-8 unchanged.
	text := func(field, s string) bool {
		if !utf8.ValidString(s) {
			add(field, "not valid UTF-8")
			return false
		}
		return true
	}

	// Definitions live under their name, next to the index and governed keys.
	switch {
	case d.Name == "":
		add("name", "required")
	case !text("name", d.Name):
	case strings.HasPrefix(d.Name, ReservedNamespace):
		add("name", "%q is reserved", ReservedNamespace)
	case strings.IndexByte(d.Name, Separator) >= 0:
		add("name", "must not contain %q", Separator)
	}
	if d.Field == "" {
		add("field", "required")
	} else {
		text("field", d.Field)
	}
	switch {
	case d.Prefix == "":
		add("prefix", "required")
	case !strings.HasSuffix(d.Prefix, string(Separator)):
		add("prefix", "must end with %q", Separator)
	case strings.IndexByte(d.Prefix, Separator) != len(d.Prefix)-1:
		add("prefix", "must contain a single %q", Separator)
	default:
		text("prefix", d.Prefix)
	}

	if len(d.States) == 0 {
		add("states", "at least one state is required")
	}
	seenStates := make(map[string]struct{}, len(d.States))
	for i, s := range d.States {
		if s == "" {
			add(fmt.Sprintf("states[%d]", i), "empty state name")
			continue
		}
		if !text(fmt.Sprintf("states[%d]", i), s) {
			continue
		}
		if _, dup := seenStates[s]; dup {
			add(fmt.Sprintf("states[%d]", i), "duplicate state %q", s)
		}
		seenStates[s] = struct{}{}
	}

	seenEvents := make(map[string]struct{}, len(d.Events))
	for i, ev := range d.Events {
		path := fmt.Sprintf("events[%d]", i)
		switch _, dup := seenEvents[ev.Name]; {
		case ev.Name == "":
			add(path+".name", "required")
		case !text(path+".name", ev.Name):
		case dup:
			add(path+".name", "duplicate event %q", ev.Name)
		}
		seenEvents[ev.Name] = struct{}{}

		if len(ev.From) == 0 {
			add(path+".from", "at least one source state is required")
		}
		for j, from := range ev.From {
			if _, ok := seenStates[from]; !ok {
				add(fmt.Sprintf("%s.from[%d]", path, j), "unknown state %q", from)
			}
		}
		if _, ok := seenStates[ev.To]; !ok {
			add(path+".to", "unknown state %q", ev.To)
		}
	}

	if len(errs) > 0 {
		return &InvalidDefinitionError{Name: d.Name, Errors: errs}
	}
	return nil
}
