// Package utils holds small shared helpers: filesystem-safe naming,
// year-filter validation, and numeric cleaning for scraped values.
package utils

import (
	"regexp"
	"strings"
)

var (
	unsafeChars = regexp.MustCompile(`[^\w\-.]`)
	repeatedSep = regexp.MustCompile(`_+`)
)

// SanitizeFilename rewrites a string so it is safe to use as a file or
// directory name. Unsafe characters collapse to single underscores.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = repeatedSep.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "unnamed"
	}
	return name
}
