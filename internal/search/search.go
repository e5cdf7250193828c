package search

import (
	"strings"

	"github.com/nikbrunner/bm/internal/model"
	"github.com/sahilm/fuzzy"
)

// Result represents a fuzzy search match.
// MatchedIndexes are byte offsets into the item's DisplayTitle; matches that
// landed on the tag suffix are dropped.
type Result struct {
	Item           model.Item
	MatchedIndexes []int
	Score          int
}

// itemKeys implements fuzzy.Source over display titles followed by tags.
type itemKeys []model.Item

func (ik itemKeys) String(i int) string {
	it := ik[i]
	if len(it.Tags) == 0 {
		return it.DisplayTitle()
	}
	return it.DisplayTitle() + " " + strings.Join(it.Tags, " ")
}

func (ik itemKeys) Len() int {
	return len(ik)
}

// FuzzySearch searches items by display title and tags using fuzzy matching.
// Returns results sorted by match score (best first).
func FuzzySearch(items []model.Item, query string) []Result {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	keys := itemKeys(items)
	matches := fuzzy.FindFrom(query, keys)

	results := make([]Result, len(matches))
	for i, m := range matches {
		item := keys[m.Index]
		titleLen := len(item.DisplayTitle())

		var idx []int
		for _, j := range m.MatchedIndexes {
			if j < titleLen {
				idx = append(idx, j)
			}
		}

		results[i] = Result{
			Item:           item,
			MatchedIndexes: idx,
			Score:          m.Score,
		}
	}

	return results
}
