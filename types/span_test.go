package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"plaid.dev/conllu/utils"
)

func testTokens() []GraphToken {
	return []GraphToken{
		{ID: "c", Begin: 4, End: 7, Precedence: utils.IntPtr(2)},
		{ID: "a", Begin: 0, End: 3},
		{ID: "b", Begin: 4, End: 5, Precedence: utils.IntPtr(1)},
		{ID: "d", Begin: 8, End: 9},
	}
}

func TestSortedTokens(t *testing.T) {
	doc := Document{Tokens: testTokens()}
	_, ids := NewTokenOrder(doc.SortedTokens())
	require.Equal(t, []string{"a", "b", "c", "d"}, ids)
	// input untouched
	require.Equal(t, "c", doc.Tokens[0].ID)
}

func TestTokenRange(t *testing.T) {
	doc := Document{Tokens: testTokens()}
	order, sorted := NewTokenOrder(doc.SortedTokens())

	byList := TokenRange{Tokens: []string{"d", "b", "missing"}}
	require.True(t, byList.Covers("b", order))
	require.False(t, byList.Covers("a", order))
	require.Equal(t, []string{"b", "d"}, byList.Covered(order, sorted))
	first, ok := byList.First(order)
	require.True(t, ok)
	require.Equal(t, "b", first)

	byRange := TokenRange{Begin: "b", End: "d"}
	require.True(t, byRange.Covers("c", order))
	require.False(t, byRange.Covers("a", order))
	require.Equal(t, []string{"b", "c", "d"}, byRange.Covered(order, sorted))

	single := TokenRange{Begin: "c"}
	require.Equal(t, []string{"c"}, single.Covered(order, sorted))

	_, ok = TokenRange{Tokens: []string{"missing"}}.First(order)
	require.False(t, ok)
}

func TestOffsetsTextOf(t *testing.T) {
	runes := []rune("naïve")
	text, ok := Offsets{Begin: 2, End: 5}.TextOf(runes)
	require.True(t, ok)
	require.Equal(t, "ïve", text)

	_, ok = Offsets{Begin: 3, End: 9}.TextOf(runes)
	require.False(t, ok)
}
