package color

import (
	"fmt"
	"math"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// Object is a 2025.10 structured color token value
type Object struct {
	ColorSpace string
	Components []any
	Alpha      *float64
	Hex        string
}

// ObjectFromMap reads a structured color from a decoded token value
func ObjectFromMap(v map[string]any) (*Object, bool) {
	space, ok := v["colorSpace"].(string)
	if !ok {
		return nil, false
	}
	c := &Object{ColorSpace: space}
	c.Components, _ = v["components"].([]any)
	if a, ok := v["alpha"].(float64); ok {
		c.Alpha = &a
	}
	c.Hex, _ = v["hex"].(string)
	return c, true
}

func (c *Object) alpha() float64 {
	if c.Alpha == nil {
		return 1.0
	}
	return *c.Alpha
}

// ToCSS converts a structured color to CSS in its own color space
func ToCSS(c *Object) string {
	if c == nil {
		return ""
	}

	// If hex field is provided, use it
	if c.Hex != "" {
		return c.Hex
	}

	alpha := c.alpha()
	space := strings.ToLower(c.ColorSpace)
	switch space {
	case "srgb":
		return srgbToCSS(c.Components, alpha)
	case "hsl":
		return hslToCSS(c.Components, alpha)
	case "hwb":
		return spaceToCSS("hwb(%.1f %.1f%% %.1f%%", c.Components, alpha)
	case "oklch":
		return spaceToCSS("oklch(%.2f %.2f %.1f", c.Components, alpha)
	case "oklab":
		return spaceToCSS("oklab(%.2f %.2f %.2f", c.Components, alpha)
	case "lch":
		return spaceToCSS("lch(%.1f %.1f %.1f", c.Components, alpha)
	case "lab":
		return spaceToCSS("lab(%.1f %.1f %.1f", c.Components, alpha)
	default:
		// display-p3, a98-rgb, prophoto-rgb, rec2020, xyz-d50, xyz-d65,
		// srgb-linear and unknown spaces go through color()
		return colorFunctionToCSS(space, c.Components, alpha)
	}
}

// ToLess converts a structured color to a literal LESS can compile: hex when
// opaque, rgba otherwise. Spaces LESS has no syntax for are converted to
// sRGB. Wide gamut spaces are not supported.
func ToLess(c *Object) (string, bool) {
	if c == nil {
		return "", false
	}
	if c.Hex != "" {
		return strings.ToLower(c.Hex), true
	}
	rgb, ok := toSRGB(c)
	if !ok {
		return "", false
	}
	rgb = rgb.Clamp()
	if rgb.A >= 0.999 {
		rgb.A = 1
		return rgb.HexString(), true
	}
	r, g, b, _ := rgb.RGBA255()
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", r, g, b, rgb.A), true
}

// toSRGB converts the components of c to an sRGB color
func toSRGB(c *Object) (csscolorparser.Color, bool) {
	if len(c.Components) < 3 {
		return csscolorparser.Color{}, false
	}
	x := componentToFloat(c.Components[0])
	y := componentToFloat(c.Components[1])
	z := componentToFloat(c.Components[2])
	a := c.alpha()

	switch strings.ToLower(c.ColorSpace) {
	case "srgb":
		return csscolorparser.Color{R: x, G: y, B: z, A: a}, true
	case "srgb-linear":
		return csscolorparser.FromLinearRGB(x, y, z, a), true
	case "hsl":
		return csscolorparser.FromHsl(x, y/100, z/100, a), true
	case "hwb":
		return csscolorparser.FromHwb(x, y/100, z/100, a), true
	case "oklab":
		return csscolorparser.FromOklab(x, y, z, a), true
	case "oklch":
		return csscolorparser.FromOklch(x, y, radians(z), a), true
	case "lab":
		return csscolorparser.FromLab(x, y, z, a), true
	case "lch":
		return csscolorparser.FromLch(x, y, radians(z), a), true
	}
	return csscolorparser.Color{}, false
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// srgbToCSS converts sRGB components to CSS
func srgbToCSS(components []any, alpha float64) string {
	if len(components) < 3 {
		return ""
	}

	r := to255(components[0])
	g := to255(components[1])
	b := to255(components[2])

	if alpha >= 0.999 {
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}

	// Use rgba for transparency
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", r, g, b, alpha)
}

// hslToCSS converts HSL components to CSS
func hslToCSS(components []any, alpha float64) string {
	if len(components) < 3 {
		return ""
	}

	h := componentToFloat(components[0])
	s := componentToFloat(components[1])
	l := componentToFloat(components[2])

	if alpha >= 0.999 {
		return fmt.Sprintf("hsl(%.1f, %.1f%%, %.1f%%)", h, s, l)
	}

	return fmt.Sprintf("hsla(%.1f, %.1f%%, %.1f%%, %.2f)", h, s, l, alpha)
}

// spaceToCSS formats the space separated functional notation shared by
// hwb, lab, lch, oklab and oklch. format lacks the closing parenthesis.
func spaceToCSS(format string, components []any, alpha float64) string {
	if len(components) < 3 {
		return ""
	}

	s := fmt.Sprintf(format,
		componentToFloat(components[0]),
		componentToFloat(components[1]),
		componentToFloat(components[2]))
	if alpha >= 0.999 {
		return s + ")"
	}
	return fmt.Sprintf("%s / %.2f)", s, alpha)
}

// colorFunctionToCSS converts color space to CSS color() function
func colorFunctionToCSS(space string, components []any, alpha float64) string {
	if len(components) < 3 {
		return ""
	}

	c0 := componentToString(components[0])
	c1 := componentToString(components[1])
	c2 := componentToString(components[2])

	if alpha >= 0.999 {
		return fmt.Sprintf("color(%s %s %s %s)", space, c0, c1, c2)
	}

	return fmt.Sprintf("color(%s %s %s %s / %.2f)", space, c0, c1, c2, alpha)
}

// componentToFloat converts a component value to float64.
// The "none" keyword is treated as 0.
func componentToFloat(component any) float64 {
	switch v := component.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0.0
}

// componentToString converts a component to string for CSS color() function
func componentToString(component any) string {
	switch v := component.(type) {
	case float64:
		return fmt.Sprintf("%.4f", v)
	case int:
		return fmt.Sprintf("%d", v)
	case string:
		return v // "none" keyword
	}
	return "0"
}

// to255 converts a 0-1 component to the 0-255 range
func to255(component any) int {
	v := math.Max(0, math.Min(1, componentToFloat(component)))
	return int(math.Round(v * 255))
}
