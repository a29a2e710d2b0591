package types

import "sort"

// Offsets are code point positions into a document text, end exclusive.
type Offsets struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

func (offsets Offsets) Len() int {
	return offsets.End - offsets.Begin
}

// TextOf returns runes[Begin:End], false when the offsets fall outside.
func (offsets Offsets) TextOf(runes []rune) (string, bool) {
	if offsets.Begin < 0 || offsets.End > len(runes) || offsets.Begin > offsets.End {
		return "", false
	}
	return string(runes[offsets.Begin:offsets.End]), true
}

func OffsetsSortFunction(a Offsets, b Offsets) bool {
	if a.Begin == b.Begin {
		return a.End < b.End
	}
	return a.Begin < b.Begin
}

// TokenOrder maps a token id to its position in document order.
type TokenOrder map[string]int

// TokenRange selects tokens either by an explicit id list or by a begin/end pair
// of token ids (inclusive, in document order).
type TokenRange struct {
	Tokens []string `json:"tokens,omitempty"`
	Begin  string   `json:"begin,omitempty"`
	End    string   `json:"end,omitempty"`
}

func (r TokenRange) Covers(tokenID string, order TokenOrder) bool {
	for _, id := range r.Tokens {
		if id == tokenID {
			return true
		}
	}
	if r.Begin == "" {
		return false
	}
	pos, ok := order[tokenID]
	if !ok {
		return false
	}
	begin, ok := order[r.Begin]
	if !ok {
		return false
	}
	end := begin
	if r.End != "" {
		if end, ok = order[r.End]; !ok {
			return false
		}
	}
	return pos >= begin && pos <= end
}

// Covered lists covered token ids in document order. Unknown ids are dropped.
// sorted must be the id list the order was built from.
func (r TokenRange) Covered(order TokenOrder, sorted []string) []string {
	positions := make(map[int]bool, len(r.Tokens))
	for _, id := range r.Tokens {
		if pos, ok := order[id]; ok {
			positions[pos] = true
		}
	}
	if begin, ok := order[r.Begin]; ok && r.Begin != "" {
		end := begin
		if r.End != "" {
			end, ok = order[r.End]
		}
		if ok {
			for pos := begin; pos <= end && pos < len(sorted); pos++ {
				positions[pos] = true
			}
		}
	}
	sortedPositions := make([]int, 0, len(positions))
	for pos := range positions {
		sortedPositions = append(sortedPositions, pos)
	}
	sort.Ints(sortedPositions)
	covered := make([]string, len(sortedPositions))
	for i, pos := range sortedPositions {
		covered[i] = sorted[pos]
	}
	return covered
}

// First returns the covered token that comes first in document order.
func (r TokenRange) First(order TokenOrder) (string, bool) {
	first, firstPos := "", -1
	for _, id := range r.Tokens {
		pos, ok := order[id]
		if !ok {
			continue
		}
		if firstPos < 0 || pos < firstPos {
			first, firstPos = id, pos
		}
	}
	if r.Begin != "" {
		if pos, ok := order[r.Begin]; ok && (firstPos < 0 || pos < firstPos) {
			first, firstPos = r.Begin, pos
		}
	}
	return first, firstPos >= 0
}
