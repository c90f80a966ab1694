package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sahilm "github.com/sahilm/fuzzy"
)

// Match is one filter hit
type Match struct {
	Index          int   // Index in the source slice
	MatchedIndexes []int // Character positions that matched (for highlighting)
	Score          int   // Higher is better
}

// Index implements sahilm/fuzzy.Source over a fixed set of titles
type Index struct {
	lowerTitles []string // Pre-computed lowercase titles
}

// NewIndex builds an index over titles
func NewIndex(titles []string) *Index {
	lower := make([]string, len(titles))
	for i, t := range titles {
		lower[i] = strings.ToLower(t)
	}
	return &Index{lowerTitles: lower}
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (idx *Index) String(i int) string { return idx.lowerTitles[i] }

// Len returns the number of titles (implements fuzzy.Source)
func (idx *Index) Len() int { return len(idx.lowerTitles) }

// Filter returns titles matching query as a subsequence, best first.
// An empty query matches everything in source order.
func (idx *Index) Filter(query string) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		all := make([]Match, idx.Len())
		for i := range all {
			all[i] = Match{Index: i}
		}
		return all
	}

	found := sahilm.FindFrom(strings.ToLower(query), idx)
	matches := make([]Match, len(found))
	for i, m := range found {
		matches[i] = Match{
			Index:          m.Index,
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return matches
}

// Rank orders titles by edit distance to query, for jump-to-song.
// Only titles containing the query's characters in order are returned.
func Rank(query string, titles []string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Stable(ranks)

	// A song may appear twice in a setlist; keep every slot
	out := make([]int, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.OriginalIndex)
	}
	return out
}
