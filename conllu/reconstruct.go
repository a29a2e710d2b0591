package conllu

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"plaid.dev/conllu/types"
)

// TokenSeparator is inserted between surface units of a sentence.
const TokenSeparator = " "

// surfaceUnit is what appears in the text: a plain token or a whole multi-word
// token. First and Last are the 1-based token ids it stands for.
type surfaceUnit struct {
	Form  string
	First int
	Last  int
}

func surfaceUnits(sent *types.Sentence) []surfaceUnit {
	units := make([]surfaceUnit, 0, len(sent.Tokens))
	for id := 1; id <= len(sent.Tokens); id++ {
		if mwt, ok := sent.MultiWordFor(id); ok && mwt.Start == id {
			units = append(units, surfaceUnit{Form: sent.MultiWordForm(mwt), First: mwt.Start, Last: mwt.End})
			id = mwt.End
			continue
		}
		units = append(units, surfaceUnit{Form: sent.Tokens[id-1].Form, First: id, Last: id})
	}
	return units
}

// Reconstruct rebuilds the flat document text: surface units joined by one
// space, sentences joined by separator ("\n" when empty).
func Reconstruct(doc types.ParsedDocument, separator string) string {
	if separator == "" {
		separator = types.DefaultSentenceSeparator
	}
	var sb strings.Builder
	for i := range doc.Sentences {
		if i > 0 {
			sb.WriteString(separator)
		}
		for j, unit := range surfaceUnits(&doc.Sentences[i]) {
			if j > 0 {
				sb.WriteString(TokenSeparator)
			}
			sb.WriteString(unit.Form)
		}
	}
	return sb.String()
}

// Positions computes code point offsets of every token under the Reconstruct
// policy. Tokens covered by a multi-word token get the offsets of the whole
// surface form. text must be the reconstruction of doc with the same separator.
func Positions(text string, doc types.ParsedDocument, separator string) ([][]types.Offsets, error) {
	if separator == "" {
		separator = types.DefaultSentenceSeparator
	}
	runes := []rune(text)
	sepLen := utf8.RuneCountInString(separator)
	cursor := 0

	positions := make([][]types.Offsets, len(doc.Sentences))
	for i := range doc.Sentences {
		if i > 0 {
			cursor += sepLen
		}
		sent := &doc.Sentences[i]
		offsets := make([]types.Offsets, len(sent.Tokens))
		for j, unit := range surfaceUnits(sent) {
			if j > 0 {
				cursor += utf8.RuneCountInString(TokenSeparator)
			}
			span := types.Offsets{Begin: cursor, End: cursor + utf8.RuneCountInString(unit.Form)}
			if got, ok := span.TextOf(runes); !ok || got != unit.Form {
				return nil, fmt.Errorf("%w: sentence %d, token %d, expected %q at %d-%d",
					ErrOffsetMismatch, i+1, unit.First, unit.Form, span.Begin, span.End)
			}
			for id := unit.First; id <= unit.Last; id++ {
				offsets[id-1] = span
			}
			cursor = span.End
		}
		positions[i] = offsets
	}
	if cursor != len(runes) {
		return nil, fmt.Errorf("%w: %d trailing characters", ErrOffsetMismatch, len(runes)-cursor)
	}
	return positions, nil
}
