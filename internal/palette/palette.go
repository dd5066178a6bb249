// Package palette builds the LESS expressions that derive tint and shade
// steps from a base color at compile time.
package palette

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// DefaultPrimaryVariable is the canonical base of the primary family
const DefaultPrimaryVariable = "@primary-color"

// DefaultPrimaryFamily is the shade prefix that always targets the primary color
const DefaultPrimaryFamily = "@primary"

var (
	// PrimaryIndices are the shade steps generated for the primary color
	PrimaryIndices = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	// DefaultIndices are the shade steps generated for every other variable
	DefaultIndices = []int{1, 2, 3, 4, 5, 7}
)

// ErrNotShade indicates a name that does not end in a shade index
var ErrNotShade = errors.New("not a shade name")

var shadeName = regexp.MustCompile(`^(.*)-(\d+)$`)

// Builder produces shade names and shade expressions
type Builder struct {
	// PrimaryFamilies lists shade prefixes that resolve to PrimaryVariable,
	// e.g. "@primary" and "@brand"
	PrimaryFamilies []string
	PrimaryVariable string
}

// NewBuilder creates a builder. With no families the default primary family is used.
func NewBuilder(families ...string) *Builder {
	if len(families) == 0 {
		families = []string{DefaultPrimaryFamily}
	}
	return &Builder{
		PrimaryFamilies: families,
		PrimaryVariable: DefaultPrimaryVariable,
	}
}

// Split breaks a shade name into its base and index
func Split(name string) (base string, index int, err error) {
	m := shadeName.FindStringSubmatch(name)
	if m == nil || m[1] == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrNotShade, name)
	}
	index, err = strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrNotShade, name)
	}
	return m[1], index, nil
}

// IsShadeName reports whether name has the `<base>-<digits>` form
func IsShadeName(name string) bool {
	_, _, err := Split(name)
	return err == nil
}

// Expression returns the colorPalette call computing the shade named by name.
//
//	@primary-3 → color(~`colorPalette("@{primary-color}", 3)`)
//	@link-2    → color(~`colorPalette("@{link}", 2)`)
func (b *Builder) Expression(name string) (string, error) {
	base, index, err := Split(name)
	if err != nil {
		return "", err
	}
	target := base
	if b.isPrimary(base) {
		target = b.primary()
	}
	return Call(target, index), nil
}

// Call formats the colorPalette call for target at index
func Call(target string, index int) string {
	return fmt.Sprintf("color(~`colorPalette(\"@{%s}\", %d)`)", strings.TrimPrefix(target, "@"), index)
}

// ShadeName names the probe token for shade index of variable
func (b *Builder) ShadeName(variable string, index int) string {
	if variable == b.primary() {
		return fmt.Sprintf("%s-%d", b.family(), index)
	}
	return fmt.Sprintf("%s-%d", variable, index)
}

// Indices returns the shade steps generated for variable
func (b *Builder) Indices(variable string) []int {
	if variable == b.primary() {
		return PrimaryIndices
	}
	return DefaultIndices
}

func (b *Builder) isPrimary(base string) bool {
	if len(b.PrimaryFamilies) == 0 {
		return base == DefaultPrimaryFamily
	}
	return slices.Contains(b.PrimaryFamilies, base)
}

func (b *Builder) primary() string {
	if b.PrimaryVariable == "" {
		return DefaultPrimaryVariable
	}
	return b.PrimaryVariable
}

func (b *Builder) family() string {
	if len(b.PrimaryFamilies) == 0 {
		return DefaultPrimaryFamily
	}
	return b.PrimaryFamilies[0]
}

// RandomColor returns a random six digit hex color
func RandomColor() string {
	return fmt.Sprintf("#%06x", rand.IntN(0x1000000))
}
