package league

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UnknownName is shown for drivers and teams the API sent without a name.
const UnknownName = "Unknown"

// FirstNonEmpty returns the first candidate that is not blank, or "".
func FirstNonEmpty(candidates ...string) string {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}

	return ""
}

func displayName(name string) string {
	if name := FirstNonEmpty(name); name != "" {
		return name
	}

	return UnknownName
}

// NormaliseName lowercases a name, strips diacritics and collapses whitespace so that
// "Kimi  Räikkönen" and "kimi raikkonen" compare equal.
func NormaliseName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	stripped, _, err := transform.String(t, name)

	if err != nil {
		stripped = name
	}

	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// SameDriver compares two driver names ignoring case, diacritics and whitespace.
func SameDriver(a, b string) bool {
	na, nb := NormaliseName(a), NormaliseName(b)

	return na != "" && na == nb
}

func shortenDriverName(name string) string {
	nameParts := strings.Split(name, " ")

	if last := []rune(nameParts[len(nameParts)-1]); len(nameParts) > 1 && len(last) > 1 {
		nameParts[len(nameParts)-1] = string(last[:1]) + "."
	}

	return strings.Join(nameParts, " ")
}

// UseShortenedDriverNames masks surnames in rendered output ("Jenson B.").
var UseShortenedDriverNames = false

func driverName(name string) string {
	if UseShortenedDriverNames {
		return shortenDriverName(name)
	}

	return name
}

func driverInitials(name string) string {
	nameParts := strings.Fields(name)

	if UseShortenedDriverNames {
		if len(nameParts) <= 1 {
			return name
		}

		var initials []rune

		for _, part := range nameParts {
			initials = append(initials, []rune(part)[0])
		}

		return strings.ToUpper(string(initials))
	}

	if len(nameParts) > 0 {
		if last := []rune(nameParts[len(nameParts)-1]); len(last) >= 3 {
			return strings.ToUpper(string(last[:3]))
		}
	}

	return strings.ToUpper(name)
}

func ordinal(x int64) string {
	suffix := "th"

	switch x % 10 {
	case 1:
		if x%100 != 11 {
			suffix = "st"
		}
	case 2:
		if x%100 != 12 {
			suffix = "nd"
		}
	case 3:
		if x%100 != 13 {
			suffix = "rd"
		}
	}

	return suffix
}

func formatPoints(points float64) string {
	if points == float64(int64(points)) {
		return fmt.Sprintf("%d", int64(points))
	}

	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", points), "0"), ".")
}
