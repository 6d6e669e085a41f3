// Package section maps article paths to the site sections excluded from ingestion.
package section

import "strings"

// Category is a site section derived from a path prefix.
type Category string

const (
	// None means the path is not in any known section.
	None              Category = ""
	Learn             Category = "learn"
	Markets           Category = "markets"
	ConsensusMagazine Category = "consensus-magazine"
)

// excluded is checked in order; the first matching prefix wins.
var excluded = []Category{Learn, Markets, ConsensusMagazine}

// Classify returns the section whose "/{section}/" prefix begins path, or None.
func Classify(path string) Category {
	for _, c := range excluded {
		if strings.HasPrefix(path, "/"+string(c)+"/") {
			return c
		}
	}
	return None
}

// IsExcluded reports whether path falls in an excluded section.
func IsExcluded(path string) bool {
	return Classify(path) != None
}

// Categories returns the known sections in match order.
func Categories() []Category {
	out := make([]Category, len(excluded))
	copy(out, excluded)
	return out
}

func (c Category) String() string {
	if c == None {
		return "none"
	}
	return string(c)
}
