package variables

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCircularAlias indicates a variable aliases itself through a chain
	ErrCircularAlias = errors.New("circular variable alias")

	// ErrAliasTooDeep indicates an alias chain longer than MaxAliasDepth
	ErrAliasTooDeep = errors.New("variable alias chain too deep")
)

// CircularAliasError reports the chain of variables that loops back on itself
type CircularAliasError struct {
	Chain []string
}

func (e *CircularAliasError) Error() string {
	return fmt.Sprintf("circular variable alias: %s", strings.Join(e.Chain, " → "))
}

func (e *CircularAliasError) Unwrap() error {
	return ErrCircularAlias
}

// NewCircularAliasError creates a new circular alias error
func NewCircularAliasError(chain []string) error {
	return &CircularAliasError{Chain: chain}
}
