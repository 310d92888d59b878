package utils

import (
	"strconv"
	"strings"
)

// CleanNumeric converts a scraped financial string to a float. It strips
// currency symbols and thousands separators and treats accounting-style
// parentheses as a negative sign. A literal "-", "n/a", or anything that
// still fails to parse yields nil rather than an error: numeric extraction
// degrades, it does not abort.
func CleanNumeric(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	for _, sym := range []string{"$", "€", "£", "¥", ","} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if negative {
		v = -v
	}
	return &v
}

// LooksNumeric reports whether a cell value parses as a number after
// CleanNumeric's normalization.
func LooksNumeric(s string) bool {
	return CleanNumeric(s) != nil
}
