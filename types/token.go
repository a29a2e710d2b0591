package types

import "strconv"

// Token is one syntactic word of a parsed CoNLL-U sentence.
type Token struct {
	// 1-based index within the sentence
	ID     int
	Form   string
	Lemma  *string
	Upos   *string
	Xpos   *string
	Feats  []string
	Head   *int
	Deprel *string
	Deps   string
	Misc   string
}

func (token Token) IsRoot() bool {
	return token.Head != nil && *token.Head == 0
}

func (token Token) Clone() Token {
	clone := token
	if token.Feats != nil {
		clone.Feats = append([]string(nil), token.Feats...)
	}
	return clone
}

// MultiWordToken is a range line (`start-end`) covering at least two tokens.
type MultiWordToken struct {
	Start int
	End   int
	Misc  string
}

func (mwt MultiWordToken) Covers(id int) bool {
	return id >= mwt.Start && id <= mwt.End
}

func (mwt MultiWordToken) Len() int {
	return mwt.End - mwt.Start + 1
}

func (mwt MultiWordToken) RangeID() string {
	return strconv.Itoa(mwt.Start) + "-" + strconv.Itoa(mwt.End)
}
