package loam

// DefinitionMetadata is the front matter (or JSON/YAML body) of one
// Definition document. It uses "mapstructure" tags to match the YAML keys.
type DefinitionMetadata struct {
	// Name defaults to the document ID without extension.
	Name   string          `json:"name" mapstructure:"name"`
	Prefix string          `json:"prefix" mapstructure:"prefix"`
	Field  string          `json:"field" mapstructure:"field"`
	States []string        `json:"states" mapstructure:"states"`
	Events []EventMetadata `json:"events" mapstructure:"events"`
}

type EventMetadata struct {
	Name string `json:"name" mapstructure:"name"`
	// From is a single state or a list of states.
	From any    `json:"from" mapstructure:"from"`
	To   string `json:"to" mapstructure:"to"`
}
