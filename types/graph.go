package types

import "sort"

// Document is the annotation graph of one stored document: a text body, tokens
// addressing it by offsets, span layers over tokens and dependency relations
// between lemma spans.
type Document struct {
	ID        string
	Name      string
	Text      *string
	Tokens    []GraphToken
	Layers    AnnotationLayers
	Relations []Relation
}

type GraphToken struct {
	ID         string `json:"id"`
	Begin      int    `json:"begin"`
	End        int    `json:"end"`
	Precedence *int   `json:"precedence,omitempty"`
}

func (token GraphToken) Offsets() Offsets {
	return Offsets{Begin: token.Begin, End: token.End}
}

// ValueSpan is a Lemma, UPOS, XPOS or Features annotation.
type ValueSpan struct {
	ID string `json:"id"`
	TokenRange
	Value *string `json:"value"`
}

// SentenceSpan marks a sentence; its first covered token starts the sentence.
type SentenceSpan struct {
	ID string `json:"id"`
	TokenRange
	Metadata Metadata `json:"metadata,omitempty"`
}

// MultiWordSpan groups the syntactic words of one surface token. It has no value.
type MultiWordSpan struct {
	ID string `json:"id"`
	TokenRange
}

type AnnotationLayers struct {
	Lemma     []ValueSpan
	Upos      []ValueSpan
	Xpos      []ValueSpan
	Features  []ValueSpan
	Sentence  []SentenceSpan
	MultiWord []MultiWordSpan
}

// Relation is a dependency edge between two lemma spans. Source == Target encodes
// the sentence root.
type Relation struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  *string `json:"value"`
}

func (rel Relation) IsRoot() bool {
	return rel.Source == rel.Target
}

// SortedTokens orders tokens by begin offset, then precedence when both tokens
// carry one, otherwise keeps input order.
func (doc *Document) SortedTokens() []GraphToken {
	sorted := append([]GraphToken(nil), doc.Tokens...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Begin != b.Begin {
			return a.Begin < b.Begin
		}
		if a.Precedence != nil && b.Precedence != nil {
			return *a.Precedence < *b.Precedence
		}
		return false
	})
	return sorted
}

func NewTokenOrder(sorted []GraphToken) (TokenOrder, []string) {
	order := make(TokenOrder, len(sorted))
	ids := make([]string, len(sorted))
	for i, token := range sorted {
		order[token.ID] = i
		ids[i] = token.ID
	}
	return order, ids
}
