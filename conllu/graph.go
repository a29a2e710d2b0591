package conllu

import (
	"fmt"
	"unicode/utf8"

	"plaid.dev/conllu/types"
	"plaid.dev/conllu/utils"
)

type BuildOptions struct {
	ID                string
	Name              string
	SentenceSeparator string
}

// BuildDocument turns a parsed document into the annotation graph that an import
// writes to the store: the reconstructed text, one graph token per syntactic
// word, span layers and dependency relations between lemma spans.
func BuildDocument(parsed types.ParsedDocument, opts BuildOptions) (types.Document, error) {
	text := Reconstruct(parsed, opts.SentenceSeparator)
	positions, err := Positions(text, parsed, opts.SentenceSeparator)
	if err != nil {
		return types.Document{}, err
	}

	doc := types.Document{
		ID:     opts.ID,
		Name:   opts.Name,
		Text:   &text,
		Tokens: make([]types.GraphToken, 0, parsed.TokenCount()),
	}
	ids := &idGenerator{}
	for i := range parsed.Sentences {
		buildSentence(&doc, &parsed.Sentences[i], positions[i], ids)
	}
	return doc, nil
}

type idGenerator struct {
	counters map[string]int
}

func (g *idGenerator) next(prefix string) string {
	if g.counters == nil {
		g.counters = make(map[string]int)
	}
	g.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, g.counters[prefix])
}

func buildSentence(doc *types.Document, sent *types.Sentence, offsets []types.Offsets, ids *idGenerator) {
	tokenIDs := make([]string, len(sent.Tokens))
	lemmaIDs := make([]string, len(sent.Tokens))

	// constituents of a multi-word token split its surface form in order
	inner := make(map[int]int)
	for _, mwt := range sent.MultiWordTokens {
		cursor := offsets[mwt.Start-1].Begin
		for id := mwt.Start; id <= mwt.End; id++ {
			inner[id] = cursor
			cursor += utf8.RuneCountInString(sent.Tokens[id-1].Form)
		}
	}

	for i, token := range sent.Tokens {
		graphToken := types.GraphToken{
			ID:    ids.next("token"),
			Begin: offsets[i].Begin,
			End:   offsets[i].End,
		}
		if begin, ok := inner[token.ID]; ok {
			graphToken.Begin = begin
			graphToken.End = begin + utf8.RuneCountInString(token.Form)
			graphToken.Precedence = utils.IntPtr(token.ID)
		}
		tokenIDs[i] = graphToken.ID
		doc.Tokens = append(doc.Tokens, graphToken)

		lemma := types.ValueSpan{ID: ids.next("lemma"), Value: token.Lemma}
		lemma.Tokens = []string{graphToken.ID}
		lemmaIDs[i] = lemma.ID
		doc.Layers.Lemma = append(doc.Layers.Lemma, lemma)

		if token.Upos != nil {
			doc.Layers.Upos = append(doc.Layers.Upos, valueSpan(ids.next("upos"), graphToken.ID, *token.Upos))
		}
		if token.Xpos != nil {
			doc.Layers.Xpos = append(doc.Layers.Xpos, valueSpan(ids.next("xpos"), graphToken.ID, *token.Xpos))
		}
		for _, feat := range token.Feats {
			doc.Layers.Features = append(doc.Layers.Features, valueSpan(ids.next("features"), graphToken.ID, feat))
		}
	}

	sentence := types.SentenceSpan{ID: ids.next("sentence"), Metadata: sent.Metadata.Clone()}
	sentence.Tokens = tokenIDs
	doc.Layers.Sentence = append(doc.Layers.Sentence, sentence)

	for _, mwt := range sent.MultiWordTokens {
		span := types.MultiWordSpan{ID: ids.next("mwt")}
		span.Tokens = append([]string(nil), tokenIDs[mwt.Start-1:mwt.End]...)
		doc.Layers.MultiWord = append(doc.Layers.MultiWord, span)
	}

	for i, token := range sent.Tokens {
		if token.Head == nil {
			continue
		}
		head := *token.Head
		rel := types.Relation{Target: lemmaIDs[i], Value: token.Deprel}
		switch {
		case head == 0:
			rel.Source = lemmaIDs[i]
		case head <= len(sent.Tokens):
			rel.Source = lemmaIDs[head-1]
		default:
			// dangling head, nothing to point at
			continue
		}
		rel.ID = ids.next("relation")
		doc.Relations = append(doc.Relations, rel)
	}
}

func valueSpan(id string, tokenID string, value string) types.ValueSpan {
	span := types.ValueSpan{ID: id, Value: utils.StringPtr(value)}
	span.Tokens = []string{tokenID}
	return span
}
