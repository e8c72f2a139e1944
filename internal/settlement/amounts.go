package settlement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmounts turns newline-separated amount text into numbers. Blank,
// non-numeric and negative lines are skipped; thousands separators are removed.
func ParseAmounts(text string) []float64 {
	amounts := make([]float64, 0)
	for _, line := range strings.Split(text, "\n") {
		v, ok := parseAmount(line)
		if !ok {
			continue
		}
		amounts = append(amounts, v)
	}
	return amounts
}

// ParseAmount parses a single amount cell with the same rules as ParseAmounts.
func ParseAmount(s string) (float64, bool) {
	return parseAmount(s)
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// JoinAmounts renders amounts one per line, the inverse of ParseAmounts.
func JoinAmounts(amounts []float64) string {
	lines := make([]string, len(amounts))
	for i, a := range amounts {
		lines[i] = decimal.NewFromFloat(a).String()
	}
	return strings.Join(lines, "\n")
}
