package color

import (
	"strings"

	"bennypowers.dev/lesstheme/internal/collections"
	"github.com/mazznoer/csscolorparser"
)

// Normalize returns a canonical lowercase hex form of value, or false when
// value is not a color csscolorparser understands.
func Normalize(value string) (string, bool) {
	c, err := csscolorparser.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	return strings.ToLower(c.HexString()), true
}

// Set holds the concrete colors known to belong to some theme variable.
// Membership matches the literal text first and the normalized color second,
// so #FFF and #ffffff are the same member.
type Set struct {
	exact      collections.Set[string]
	normalized collections.Set[string]
}

// NewSet creates a Set with the given colors
func NewSet(values ...string) *Set {
	s := &Set{
		exact:      collections.NewSet[string](),
		normalized: collections.NewSet[string](),
	}
	s.Add(values...)
	return s
}

// Add adds colors to the set
func (s *Set) Add(values ...string) {
	for _, v := range values {
		s.exact.Add(v)
		if n, ok := Normalize(v); ok {
			s.normalized.Add(n)
		}
	}
}

// Has reports whether value is a member
func (s *Set) Has(value string) bool {
	if s == nil {
		return false
	}
	if s.exact.Has(value) {
		return true
	}
	n, ok := Normalize(value)
	return ok && s.normalized.Has(n)
}

// Len returns the number of distinct literals added
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.exact)
}

// Members returns the literals in sorted order
func (s *Set) Members() []string {
	if s == nil {
		return nil
	}
	return collections.Sorted(s.exact)
}
