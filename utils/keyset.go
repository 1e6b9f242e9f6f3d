package utils

import "strings"

// KeySet tracks composite keys that have already been seen.
// It is not safe for concurrent use.
type KeySet struct {
	seen map[string]struct{}
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet) Add(parts ...string) bool {
	k := JoinKey(parts...)
	if _, exists := s.seen[k]; exists {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Contains returns true if the key has already been added.
func (s *KeySet) Contains(parts ...string) bool {
	_, exists := s.seen[JoinKey(parts...)]
	return exists
}

// Size returns the number of unique keys tracked.
func (s *KeySet) Size() int {
	return len(s.seen)
}

// JoinKey builds an unambiguous map key from its parts.
func JoinKey(parts ...string) string {
	return strings.Join(parts, "\x1f")
}
