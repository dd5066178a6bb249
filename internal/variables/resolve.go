package variables

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"bennypowers.dev/lesstheme/internal/collections"
	"bennypowers.dev/lesstheme/internal/color"
	"bennypowers.dev/lesstheme/internal/log"
)

// MaxAliasDepth bounds how many aliases are followed for one variable
const MaxAliasDepth = 64

// Mapping maps a variable name to its fully dereferenced color
type Mapping map[string]string

// Names returns the mapped variable names in sorted order
func (m Mapping) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve parses text and resolves every definition to a color.
//
//	@primary-color: #1890ff;
//	@link-color: @primary-color;
//
// resolves @link-color → @primary-color → #1890ff. Entries whose final value
// is not a valid color are left out. Cyclic entries are left out as well and
// reported through the returned error, which wraps ErrCircularAlias; the
// mapping of the remaining entries is returned either way.
func Resolve(text string) (Mapping, error) {
	return ResolveDefinitions(Parse(text))
}

// ResolveDefinitions resolves already parsed definitions. When a name is
// defined more than once the last definition wins.
func ResolveDefinitions(defs []Definition) (Mapping, error) {
	raw := make(map[string]string, len(defs))
	order := collections.NewOrdered[string]()
	for _, def := range defs {
		raw[def.Name] = def.Value
		order.Add(def.Name)
	}

	mapping := make(Mapping, len(raw))
	reported := collections.NewSet[string]()
	var errs []error

	for _, name := range order.Members() {
		value, err := dereference(name, raw)
		if err != nil {
			var circular *CircularAliasError
			if errors.As(err, &circular) {
				key := cycleKey(circular.Chain)
				if reported.Has(key) {
					continue
				}
				reported.Add(key)
			}
			errs = append(errs, err)
			continue
		}
		if !color.IsValid(value) {
			log.Debug("Skipping %s: %q is not a color", name, value)
			continue
		}
		mapping[name] = value
	}

	return mapping, errors.Join(errs...)
}

// dereference follows the alias chain starting at name until the value is no
// longer a defined variable name.
func dereference(name string, raw map[string]string) (string, error) {
	chain := []string{name}
	value := raw[name]
	for strings.HasPrefix(value, Marker) {
		next, ok := raw[value]
		if !ok {
			break
		}
		if i := slices.Index(chain, value); i >= 0 {
			return "", NewCircularAliasError(append(slices.Clone(chain[i:]), value))
		}
		if len(chain) > MaxAliasDepth {
			return "", fmt.Errorf("%w: %s", ErrAliasTooDeep, name)
		}
		chain = append(chain, value)
		value = next
	}
	return value, nil
}

// cycleKey identifies a cycle regardless of which member it was entered from
func cycleKey(chain []string) string {
	members := slices.Clone(chain[:len(chain)-1])
	slices.Sort(members)
	return strings.Join(members, ",")
}

// Declared lists the variable names defined in text in the order they first
// appear. Unlike Resolve it keeps names whose values are not colors.
func Declared(text string) []string {
	names := collections.NewOrdered[string]()
	for _, def := range Parse(text) {
		names.Add(def.Name)
	}
	return names.Members()
}
