package domain

import "strings"

const (
	// Separator ends the leading segment of a governed key ("job:42" -> "job:").
	Separator = ':'

	// IndexKey is the hash record holding the prefix -> Definition name bindings.
	// It contains no Separator, so it is never governed itself.
	IndexKey = "hashfsm.prefixes"

	// ReservedNamespace starts every key owned by the module itself.
	// Definition names may not use it.
	ReservedNamespace = "hashfsm."
)

// PrefixOf returns the leading segment of key up to and including the first
// Separator. ok is false when key contains no Separator.
func PrefixOf(key string) (prefix string, ok bool) {
	i := strings.IndexByte(key, Separator)
	if i < 0 {
		return "", false
	}
	return key[:i+1], true
}
