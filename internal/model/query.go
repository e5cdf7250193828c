package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Predicate reports whether an item belongs in a filtered view.
type Predicate func(Item) bool

// All matches every item.
func All(Item) bool { return true }

// Query is the filter criteria used by the browser: an optional tag and a
// free-text search. Each part passes when unset and both must pass.
// A whitespace-only search counts as unset; otherwise spaces are part of
// the needle.
type Query struct {
	Tag    string // empty = no tag constraint
	Search string // empty = no search constraint
}

// Predicate compiles the query. The search string is normalized once.
func (q Query) Predicate() Predicate {
	var needle string
	if strings.TrimSpace(q.Search) != "" {
		needle = Fold(q.Search)
	}
	tag := q.Tag

	return func(item Item) bool {
		if tag != "" && !item.HasTag(tag) {
			return false
		}
		if needle == "" {
			return true
		}
		if strings.Contains(Fold(item.Title), needle) ||
			strings.Contains(Fold(item.URL), needle) {
			return true
		}
		for _, t := range item.Tags {
			if strings.Contains(Fold(t), needle) {
				return true
			}
		}
		return false
	}
}

// Fold normalizes s for search comparison: canonical decomposition,
// combining marks removed, then Unicode case folding. "Café" and "CAFE"
// both fold to "cafe".
func Fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}
