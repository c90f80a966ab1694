package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var titles = []string{"Friday Late Show", "Saturday Matinee", "Fall Tour Opener"}

func TestIndex_EmptyQueryMatchesAll(t *testing.T) {
	idx := NewIndex(titles)
	matches := idx.Filter("  ")
	require.Len(t, matches, 3)
	for i, m := range matches {
		assert.Equal(t, i, m.Index)
	}
}

func TestIndex_FilterIsCaseInsensitive(t *testing.T) {
	idx := NewIndex(titles)
	matches := idx.Filter("MATINEE")
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Index)
	assert.NotEmpty(t, matches[0].MatchedIndexes)
}

func TestIndex_FilterSubsequence(t *testing.T) {
	idx := NewIndex(titles)
	matches := idx.Filter("fls")
	require.NotEmpty(t, matches)
	assert.Equal(t, 0, matches[0].Index)
}

func TestIndex_NoMatch(t *testing.T) {
	assert.Empty(t, NewIndex(titles).Filter("zzz"))
}

func TestRank(t *testing.T) {
	songs := []string{"Harbor Lights", "Lighthouse", "Northern Lights", "Harbor Lights"}

	got := Rank("harbor", songs)
	assert.ElementsMatch(t, []int{0, 3}, got)

	got = Rank("north", songs)
	assert.Equal(t, []int{2}, got)

	// Closer titles rank first
	got = Rank("harbor lights", songs)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0])

	assert.Nil(t, Rank("", songs))
}
