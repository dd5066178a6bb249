// Package color decides which stylesheet values are renderable colors and
// tracks the concrete colors a theme compiles to.
package color

import (
	"regexp"
	"strings"
)

var (
	// lengthUnitRegexp matches a number followed by a length unit. px is
	// rejected anywhere in the value, the other units only after a digit so
	// that variable names such as @text-color inside fade() survive.
	lengthUnitRegexp = regexp.MustCompile(`(?i)px|\d(?:r?em|vh|vw|vmin|vmax|pt|pc|cm|mm|in|ch|ex)\b`)

	// dynamicRegexp matches palette and fade calls whose color is only known at compile time
	dynamicRegexp = regexp.MustCompile(`colorPalette|fade`)

	hexDigitsRegexp = regexp.MustCompile(`^[0-9a-fA-F]+$`)

	// functionalRegexp matches rgb/hsl/hsv colors with an optional alpha channel
	functionalRegexp = regexp.MustCompile(`(?i)^(rgb|hsl|hsv)a?\((\d+%?(deg|rad|grad|turn)?[,\s]+){2,3}[\s/]*[\d.]+%?\)$`)
)

// IsValid reports whether value is a color the theme can carry.
//
//	IsValid("#ffffff")            // true
//	IsValid("#fff")               // true
//	IsValid("rgba(0, 0, 0, 0.5)") // true
//	IsValid("20px")               // false
func IsValid(value string) bool {
	if value == "" || lengthUnitRegexp.MatchString(value) {
		return false
	}
	if dynamicRegexp.MatchString(value) {
		return true
	}
	if hex, ok := strings.CutPrefix(value, "#"); ok {
		switch len(hex) {
		case 3, 4, 6, 8:
			return hexDigitsRegexp.MatchString(hex)
		}
		return false
	}
	return functionalRegexp.MatchString(value)
}
