package utils

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ParseYears converts a comma-separated year filter ("2022,2023") into a
// sorted, de-duplicated year set. Blank input yields nil, meaning no filter.
// Years outside 1900..next-year are rejected.
func ParseYears(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	maxYear := time.Now().Year() + 1
	seen := make(map[int]bool)
	var years []int

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q: expected a 4-digit number", part)
		}
		if y < 1900 || y > maxYear {
			return nil, fmt.Errorf("year %d out of range (1900-%d)", y, maxYear)
		}
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}

	// Keep the set ordered for stable logging.
	sort.Ints(years)
	return years, nil
}
