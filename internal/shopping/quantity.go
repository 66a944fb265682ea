package shopping

import (
	"strconv"
	"strings"
)

// leadingDigits returns the run of ASCII digits at the start of s.
func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

// ParseCount reads the count at the start of a quantity such as "2 л".
// A nil or blank quantity, one without leading digits, or one whose count
// overflows an int counts as 1.
func ParseCount(q *string) int {
	if q == nil || strings.TrimSpace(*q) == "" {
		return 1
	}
	n, err := strconv.Atoi(leadingDigits(*q))
	if err != nil {
		return 1
	}
	return n
}

// ExtractUnit strips the leading count and the whitespace after it,
// returning what is left, trimmed.
func ExtractUnit(q *string) string {
	if q == nil || strings.TrimSpace(*q) == "" {
		return ""
	}
	rest := strings.TrimPrefix(*q, leadingDigits(*q))
	return strings.TrimSpace(rest)
}

// MergeQuantities adds the counts of two quantities. The unit comes from
// existing when it is set, otherwise from requested; differing units are
// not reconciled.
func MergeQuantities(existing, requested *string) string {
	total := ParseCount(existing) + ParseCount(requested)

	source := requested
	if existing != nil && strings.TrimSpace(*existing) != "" {
		source = existing
	}
	unit := ExtractUnit(source)

	if unit == "" {
		return strconv.Itoa(total)
	}
	return strconv.Itoa(total) + " " + unit
}
