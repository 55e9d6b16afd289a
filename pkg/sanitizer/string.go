package sanitizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return norm.NFC.String(result.String())
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeText trims free text such as observations but keeps line breaks.
func NormalizeText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = TrimAndNormalize(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

// NormalizeEnum lowercases a select value such as gender or race.
func NormalizeEnum(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NormalizeNameForComparison produces a key in which case, accents and
// spacing differences are ignored.
func NormalizeNameForComparison(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, TrimAndNormalize(name))
	if err != nil {
		folded = TrimAndNormalize(name)
	}
	return strings.ToLower(folded)
}
