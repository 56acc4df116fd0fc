package memory

import (
	"context"
	"fmt"
	"io"
	"maps"
	"sort"

	"gopkg.in/yaml.v3"
)

// snapshotEntry is the on-disk form of one key slot.
type snapshotEntry struct {
	Key     string            `yaml:"key"`
	Hash    map[string]string `yaml:"hash,omitempty"`
	Type    string            `yaml:"type,omitempty"`
	Payload string            `yaml:"payload,omitempty"`
}

// Snapshot writes every key to w as a YAML document. Typed values are
// serialized with their ValueType's Encode hook.
func (s *Store) Snapshot(w io.Writer) error {
	s.mu.RLock()
	entries := make([]snapshotEntry, 0, len(s.data))
	for key, e := range s.data {
		if e.hash != nil {
			entries = append(entries, snapshotEntry{Key: key, Hash: e.hash})
			continue
		}
		data, err := e.vt.Encode(e.value)
		if err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("snapshot %s: %w", key, err)
		}
		entries = append(entries, snapshotEntry{Key: key, Type: e.vt.Name(), Payload: string(data)})
	}
	// Marshal while still holding the lock: hash maps are shared.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	out, err := yaml.Marshal(entries)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	_, err = w.Write(out)
	return err
}

// Restore replaces the store content with a snapshot written by Snapshot.
// Typed values are rebuilt with the Decode hook of their registered type; the
// previous content is released. No notifications are emitted.
func (s *Store) Restore(ctx context.Context, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	var entries []snapshotEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	s.mu.RLock()
	types := maps.Clone(s.types)
	s.mu.RUnlock()

	data := make(map[string]*entry, len(entries))
	for _, se := range entries {
		if se.Type == "" {
			h := se.Hash
			if h == nil {
				h = make(map[string]string)
			}
			data[se.Key] = &entry{hash: h}
			continue
		}
		vt, ok := types[se.Type]
		if !ok {
			releaseAll(data)
			return fmt.Errorf("restore %s: unknown value type %q", se.Key, se.Type)
		}

		v, err := vt.Decode([]byte(se.Payload))
		if err != nil {
			releaseAll(data)
			return fmt.Errorf("restore %s: %w", se.Key, err)
		}
		data[se.Key] = &entry{vt: vt, value: v}
	}

	s.mu.Lock()
	old := s.data
	s.data = data
	s.mu.Unlock()

	releaseAll(old)
	return nil
}
