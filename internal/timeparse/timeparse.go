// Package timeparse turns the article page's human-readable publish date into a UTC instant.
package timeparse

import (
	"strings"
	"time"
)

// Layouts accepted after periods are stripped and whitespace is collapsed,
// e.g. "May 1, 2024 at 2:30 PM UTC" (from "May 1, 2024 at 2:30 p.m. UTC").
var layouts = []string{
	"Jan 2, 2006 at 3:04 PM UTC",
	"Jan 2, 2006 at 3:04 pm UTC",
}

// Normalize parses raw into a UTC instant. ok is false when raw cannot be parsed.
func Normalize(raw string) (t time.Time, ok bool) {
	cleaned := strings.Join(strings.Fields(strings.ReplaceAll(raw, ".", "")), " ")
	// AP style abbreviates September as "Sept".
	cleaned = strings.Replace(cleaned, "Sept ", "Sep ", 1)
	if cleaned == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		parsed, err := time.Parse(layout, cleaned)
		if err == nil {
			return parsed.UTC(), true
		}
	}

	return time.Time{}, false
}
