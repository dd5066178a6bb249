// Package cache memoizes the most recent theme build by content hash.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync/atomic"
)

// Entry pairs a content hash with the value built from that content
type Entry[T any] struct {
	Hash  string
	Value T
}

// Slot holds at most one entry. Updates are compare-and-swap against the
// entry a caller observed, so a slow build that started from stale state
// cannot overwrite a newer one.
type Slot[T any] struct {
	current atomic.Pointer[Entry[T]]
}

// NewSlot creates an empty slot
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{}
}

// Load returns the current entry, or nil when the slot is empty
func (s *Slot[T]) Load() *Entry[T] {
	return s.current.Load()
}

// Lookup returns the cached value when its hash equals hash
func (s *Slot[T]) Lookup(hash string) (T, bool) {
	if e := s.current.Load(); e != nil && e.Hash == hash {
		return e.Value, true
	}
	var zero T
	return zero, false
}

// CompareAndSwap replaces old with next if old is still the current entry
func (s *Slot[T]) CompareAndSwap(old, next *Entry[T]) bool {
	return s.current.CompareAndSwap(old, next)
}

// Store replaces the current entry unconditionally
func (s *Slot[T]) Store(e *Entry[T]) {
	s.current.Store(e)
}

// Reset empties the slot
func (s *Slot[T]) Reset() {
	s.current.Store(nil)
}

// Fingerprint hashes parts into a hex sha256 digest. Each part is length
// prefixed so that moving bytes between parts changes the digest.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strconv.Itoa(len(p))))
		h.Write([]byte{':'})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
