package color

import "regexp"

// Hex literals are searched longest first; the first length that matches anywhere wins.
var hexSearchOrder = []*regexp.Regexp{
	regexp.MustCompile(`#[0-9a-fA-F]{8}`),
	regexp.MustCompile(`#[0-9a-fA-F]{6}`),
	regexp.MustCompile(`#[0-9a-fA-F]{3,4}`),
}

// literalRegexp matches candidate color literals inside a declaration value
var literalRegexp = regexp.MustCompile(`(?i)#[0-9a-f]+|\b(?:rgb|hsl|hsv)a?\([^()]*\)`)

// FindHex returns the first hex literal in value, preferring 8 over 6 over
// 3 or 4 digit forms. The match is a pattern match, not a full validation.
func FindHex(value string) (string, bool) {
	for _, re := range hexSearchOrder {
		if m := re.FindString(value); m != "" {
			return m, true
		}
	}
	return "", false
}

// Literal is a whole color literal found in a declaration value
type Literal struct {
	Start int
	End   int
	Text  string
}

// Literals returns every whole color literal in value, in order. Hex runs
// whose digit count is not 3, 4, 6 or 8, or that continue into an
// identifier, are not literals.
func Literals(value string) []Literal {
	var found []Literal
	for _, loc := range literalRegexp.FindAllStringIndex(value, -1) {
		text := value[loc[0]:loc[1]]
		if text[0] == '#' {
			switch len(text) - 1 {
			case 3, 4, 6, 8:
			default:
				continue
			}
			if loc[1] < len(value) && isIdentByte(value[loc[1]]) {
				continue
			}
		}
		found = append(found, Literal{Start: loc[0], End: loc[1], Text: text})
	}
	return found
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
