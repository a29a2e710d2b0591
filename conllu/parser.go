// Package conllu converts between CoNLL-U text and the annotation document model.
//
// See https://universaldependencies.org/format.html for the format.
package conllu

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"plaid.dev/conllu/types"
)

const (
	FieldSeparator    = "\t"
	NumFields         = 10
	FeaturesSeparator = "|"
	EmptyField        = "_"
	RangeSeparator    = "-"
	EmptyNodeMarker   = "."
	CommentPrefix     = "#"
	MetadataSeparator = "="

	maxLineSize = 16 * 1024 * 1024
)

// column indexes
const (
	colID = iota
	colForm
	colLemma
	colUpos
	colXpos
	colFeats
	colHead
	colDeprel
	colDeps
	colMisc
)

type sentenceBuilder struct {
	sentence  types.Sentence
	hasTokens bool
	started   bool
	number    int
}

func (b *sentenceBuilder) fail(line int, format string, args ...interface{}) error {
	return &FormatError{Line: line, Sentence: b.number, Reason: fmt.Sprintf(format, args...)}
}

// ParseString parses a CoNLL-U document held in memory.
func ParseString(text string) (types.ParsedDocument, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads CoNLL-U text. Any malformed line fails the whole document with a
// *FormatError, no partial result is returned.
func Parse(r io.Reader) (types.ParsedDocument, error) {
	var doc types.ParsedDocument
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	builder := &sentenceBuilder{number: 1}
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			if !builder.started {
				continue
			}
			sent, err := builder.finish(line - 1)
			if err != nil {
				return types.ParsedDocument{}, err
			}
			doc.Sentences = append(doc.Sentences, sent)
			builder = &sentenceBuilder{number: builder.number + 1}
			continue
		}
		builder.started = true
		if !utf8.ValidString(text) {
			return types.ParsedDocument{}, builder.fail(line, "invalid UTF-8")
		}
		if strings.HasPrefix(text, CommentPrefix) {
			if err := builder.addComment(line, text); err != nil {
				return types.ParsedDocument{}, err
			}
			continue
		}
		if err := builder.addRow(line, text); err != nil {
			return types.ParsedDocument{}, err
		}
	}
	if err := scanner.Err(); err != nil {
		return types.ParsedDocument{}, fmt.Errorf("failed to read CoNLL-U input: %w", err)
	}
	if builder.started {
		sent, err := builder.finish(line)
		if err != nil {
			return types.ParsedDocument{}, err
		}
		doc.Sentences = append(doc.Sentences, sent)
	}
	if len(doc.Sentences) == 0 {
		return types.ParsedDocument{}, &FormatError{Reason: "no sentences found"}
	}
	return doc, nil
}

func (b *sentenceBuilder) addComment(line int, text string) error {
	if b.hasTokens {
		return b.fail(line, "comment after token lines")
	}
	entry, ok := ParseMetadata(text)
	if ok {
		b.sentence.Metadata.Set(entry)
	}
	return nil
}

// ParseMetadata reads `# key = value` or a bare `# key`. A lone `#` yields false.
func ParseMetadata(text string) (types.MetadataEntry, bool) {
	body := strings.TrimSpace(strings.TrimPrefix(text, CommentPrefix))
	if body == "" {
		return types.MetadataEntry{}, false
	}
	idx := strings.Index(body, MetadataSeparator)
	if idx < 0 {
		return types.MetadataEntry{Key: body, Flag: true}, true
	}
	key := strings.TrimSpace(body[:idx])
	if key == "" {
		return types.MetadataEntry{Key: body, Flag: true}, true
	}
	return types.MetadataEntry{Key: key, Value: strings.TrimSpace(body[idx+1:])}, true
}

func (b *sentenceBuilder) addRow(line int, text string) error {
	record := strings.Split(text, FieldSeparator)
	if len(record) != NumFields {
		return b.fail(line, "expected %d columns, got %d", NumFields, len(record))
	}
	b.hasTokens = true

	id := record[colID]
	switch {
	case strings.Contains(id, EmptyNodeMarker):
		if !isEmptyNodeID(id) {
			return b.fail(line, "invalid ID field %q", id)
		}
		// empty nodes belong to enhanced dependencies only
		return nil
	case strings.Contains(id, RangeSeparator):
		return b.addRange(line, record)
	}

	token, err := ParseRow(record)
	if err != nil {
		return b.fail(line, "%s", err)
	}
	if expected := len(b.sentence.Tokens) + 1; token.ID != expected {
		return b.fail(line, "token id %d out of sequence, expected %d", token.ID, expected)
	}
	b.sentence.Tokens = append(b.sentence.Tokens, token)
	return nil
}

// isEmptyNodeID accepts `N.M` ids with non-negative integer parts.
func isEmptyNodeID(id string) bool {
	word, node, ok := strings.Cut(id, EmptyNodeMarker)
	if !ok {
		return false
	}
	for _, part := range []string{word, node} {
		if n, err := strconv.Atoi(part); err != nil || n < 0 || strings.HasPrefix(part, "+") {
			return false
		}
	}
	return true
}

func (b *sentenceBuilder) addRange(line int, record []string) error {
	mwt, err := ParseRangeRow(record)
	if err != nil {
		return b.fail(line, "%s", err)
	}
	if expected := len(b.sentence.Tokens) + 1; mwt.Start != expected {
		return b.fail(line, "range %s must precede token %d", mwt.RangeID(), expected)
	}
	if n := len(b.sentence.MultiWordTokens); n > 0 && b.sentence.MultiWordTokens[n-1].End >= mwt.Start {
		return b.fail(line, "range %s overlaps %s", mwt.RangeID(), b.sentence.MultiWordTokens[n-1].RangeID())
	}
	b.sentence.MultiWordTokens = append(b.sentence.MultiWordTokens, mwt)
	return nil
}

func (b *sentenceBuilder) finish(line int) (types.Sentence, error) {
	if len(b.sentence.Tokens) == 0 {
		return types.Sentence{}, b.fail(line, "sentence has no tokens")
	}
	for _, mwt := range b.sentence.MultiWordTokens {
		if mwt.End > len(b.sentence.Tokens) {
			return types.Sentence{}, b.fail(line, "range %s points past the last token %d", mwt.RangeID(), len(b.sentence.Tokens))
		}
	}
	return b.sentence, nil
}

// ParseRow converts the ten columns of a token line.
func ParseRow(record []string) (types.Token, error) {
	var token types.Token
	id, err := strconv.Atoi(record[colID])
	if err != nil || id < 1 {
		return token, fmt.Errorf("invalid ID field %q", record[colID])
	}
	token.ID = id

	token.Form = record[colForm]
	if token.Form == "" {
		return token, fmt.Errorf("empty FORM field for token %d", id)
	}
	token.Lemma = ParseField(record[colLemma])
	token.Upos = ParseField(record[colUpos])
	token.Xpos = ParseField(record[colXpos])
	token.Feats = ParseFeatures(record[colFeats])

	head, err := ParseHead(record[colHead])
	if err != nil {
		return token, err
	}
	token.Head = head
	token.Deprel = ParseField(record[colDeprel])
	if deps := ParseField(record[colDeps]); deps != nil {
		token.Deps = *deps
	}
	if misc := ParseField(record[colMisc]); misc != nil {
		token.Misc = *misc
	}
	return token, nil
}

// ParseRangeRow converts a `start-end` line into a MultiWordToken.
func ParseRangeRow(record []string) (types.MultiWordToken, error) {
	var mwt types.MultiWordToken
	ids := strings.Split(record[colID], RangeSeparator)
	if len(ids) != 2 {
		return mwt, fmt.Errorf("invalid range %q, needs <num>-<num>", record[colID])
	}
	start, err := strconv.Atoi(ids[0])
	if err != nil || start < 1 {
		return mwt, fmt.Errorf("invalid range start in %q", record[colID])
	}
	end, err := strconv.Atoi(ids[1])
	if err != nil {
		return mwt, fmt.Errorf("invalid range end in %q", record[colID])
	}
	if end <= start {
		return mwt, fmt.Errorf("range %q must span at least two tokens", record[colID])
	}
	mwt.Start, mwt.End = start, end
	if misc := ParseField(record[colMisc]); misc != nil {
		mwt.Misc = *misc
	}
	return mwt, nil
}

// ParseField maps `_` and the empty string to nil.
func ParseField(value string) *string {
	if value == EmptyField || value == "" {
		return nil
	}
	return &value
}

// ParseFeatures splits `a=b|c=d`, dropping `_` entries.
func ParseFeatures(value string) []string {
	if value == EmptyField || value == "" {
		return nil
	}
	var feats []string
	for _, feat := range strings.Split(value, FeaturesSeparator) {
		if feat == EmptyField || feat == "" {
			continue
		}
		feats = append(feats, feat)
	}
	return feats
}

// ParseHead returns nil for `_`, 0 for the root and the governor index otherwise.
func ParseHead(value string) (*int, error) {
	if value == EmptyField {
		return nil, nil
	}
	head, err := strconv.Atoi(value)
	if err != nil || head < 0 {
		return nil, fmt.Errorf("invalid HEAD field %q", value)
	}
	return &head, nil
}
