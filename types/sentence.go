package types

import "strings"

type ParsedDocument struct {
	Sentences []Sentence
}

func (doc ParsedDocument) TokenCount() int {
	count := 0
	for _, sent := range doc.Sentences {
		count += len(sent.Tokens)
	}
	return count
}

type Sentence struct {
	Tokens          []Token
	MultiWordTokens []MultiWordToken
	Metadata        Metadata
}

// MultiWordFor returns the range covering the token with the given id.
func (sent *Sentence) MultiWordFor(id int) (MultiWordToken, bool) {
	for _, mwt := range sent.MultiWordTokens {
		if mwt.Covers(id) {
			return mwt, true
		}
	}
	return MultiWordToken{}, false
}

// MultiWordForm concatenates the forms of the constituent tokens, no separator.
func (sent *Sentence) MultiWordForm(mwt MultiWordToken) string {
	var sb strings.Builder
	for id := mwt.Start; id <= mwt.End; id++ {
		if id < 1 || id > len(sent.Tokens) {
			continue
		}
		sb.WriteString(sent.Tokens[id-1].Form)
	}
	return sb.String()
}
