package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Encode serializes a Definition into its stored form: indented JSON with
// field names preserved. Decode(Encode(d)) yields a Definition equal to d.
func Encode(d *Definition) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrDecode)
	}
	return json.MarshalIndent(d, "", "  ")
}

// Decode parses the stored form produced by Encode and validates it.
// Unknown attributes are rejected.
func Decode(data []byte) (*Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var d Definition
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after definition", ErrDecode)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ParsePayload decodes a caller-supplied Definition written as YAML or JSON
// and validates it. Unknown keys are rejected.
func ParsePayload(payload []byte) (*Definition, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	d, err := FromMap(raw)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// FromMap decodes loosely typed attributes (front matter, tool arguments)
// into a Definition without validating it. Scalars are accepted where lists
// are expected, so `from: idle` reads as `from: [idle]`.
func FromMap(raw map[string]any) (*Definition, error) {
	var d Definition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &d,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &d, nil
}
