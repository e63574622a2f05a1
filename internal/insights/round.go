package insights

import (
	"strconv"
	"strings"
)

// ratio divides, yielding 0 for a zero denominator.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// formatGrams prints v the way the dashboard shows gram values: shortest
// representation with at least one fractional digit.
func formatGrams(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
