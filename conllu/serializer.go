package conllu

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"plaid.dev/conllu/types"
)

type SerializeOptions struct {
	// Placeholder is returned for documents without text or tokens.
	Placeholder string
	Logger      *zerolog.Logger
}

type sentenceRun struct {
	tokens   []types.GraphToken
	metadata types.Metadata
}

// serializer holds the lookup tables of one export.
type serializer struct {
	runes  []rune
	tokens []types.GraphToken
	order  types.TokenOrder
	sorted []string
	log    zerolog.Logger

	sentenceOf map[string]int
	indexOf    map[string]int

	lemma    map[string]*string
	upos     map[string]*string
	xpos     map[string]*string
	features map[string][]string

	lemmaTokens map[string][]string
	relationOf  map[string]types.Relation
	multiWords  map[string]string
}

// Serialize writes the document graph as CoNLL-U. It never fails: references
// that cannot be resolved render as `_` and a document with empty text or no
// tokens renders as the placeholder comment.
func Serialize(doc types.Document, opts SerializeOptions) string {
	placeholder := opts.Placeholder
	if placeholder == "" {
		placeholder = types.DefaultPlaceholder
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	if doc.Text == nil || *doc.Text == "" || len(doc.Tokens) == 0 {
		log.Debug().Str("document", doc.ID).Msg("Nothing to serialize, writing placeholder")
		return placeholder + "\n"
	}

	tokens := doc.SortedTokens()
	order, sorted := types.NewTokenOrder(tokens)
	s := &serializer{
		runes:  []rune(*doc.Text),
		tokens: tokens,
		order:  order,
		sorted: sorted,
		log:    log.With().Str("document", doc.ID).Logger(),
	}
	runs := s.splitSentences(tokens, doc.Layers.Sentence)
	s.indexLayers(doc.Layers)
	s.indexRelations(doc.Relations)
	s.indexMultiWords(doc.Layers.MultiWord)

	var sb strings.Builder
	for _, run := range runs {
		s.writeSentence(&sb, run)
	}
	return sb.String()
}

// splitSentences groups sorted tokens into runs starting at the first token of
// each sentence span. Tokens before the first sentence start open an implicit
// sentence.
func (s *serializer) splitSentences(tokens []types.GraphToken, spans []types.SentenceSpan) []sentenceRun {
	starts := make(map[string]types.SentenceSpan, len(spans))
	for _, span := range spans {
		first, ok := span.First(s.order)
		if !ok {
			s.log.Warn().Str("span", span.ID).Msg("Sentence span covers no token, skipping")
			continue
		}
		if _, exists := starts[first]; !exists {
			starts[first] = span
		}
	}

	s.sentenceOf = make(map[string]int, len(tokens))
	s.indexOf = make(map[string]int, len(tokens))
	var runs []sentenceRun
	for _, token := range tokens {
		span, isStart := starts[token.ID]
		if isStart || len(runs) == 0 {
			runs = append(runs, sentenceRun{metadata: span.Metadata})
		}
		current := &runs[len(runs)-1]
		current.tokens = append(current.tokens, token)
		s.sentenceOf[token.ID] = len(runs) - 1
		s.indexOf[token.ID] = len(current.tokens)
	}
	return runs
}

func (s *serializer) indexLayers(layers types.AnnotationLayers) {
	s.lemma = s.firstValues(layers.Lemma)
	s.upos = s.firstValues(layers.Upos)
	s.xpos = s.firstValues(layers.Xpos)

	s.features = make(map[string][]string)
	for _, span := range layers.Features {
		if span.Value == nil || *span.Value == "" {
			continue
		}
		for _, id := range span.Covered(s.order, s.sorted) {
			s.features[id] = append(s.features[id], *span.Value)
		}
	}

	s.lemmaTokens = make(map[string][]string, len(layers.Lemma))
	for _, span := range layers.Lemma {
		s.lemmaTokens[span.ID] = span.Covered(s.order, s.sorted)
	}
}

// firstValues maps each token to the value of the first span covering it.
func (s *serializer) firstValues(spans []types.ValueSpan) map[string]*string {
	values := make(map[string]*string)
	for _, span := range spans {
		for _, id := range span.Covered(s.order, s.sorted) {
			if _, ok := values[id]; !ok {
				values[id] = span.Value
			}
		}
	}
	return values
}

func (s *serializer) indexRelations(relations []types.Relation) {
	s.relationOf = make(map[string]types.Relation, len(relations))
	for _, rel := range relations {
		targets, ok := s.lemmaTokens[rel.Target]
		if !ok {
			s.log.Warn().Str("relation", rel.ID).Str("target", rel.Target).Msg("Relation target is not a lemma span")
			continue
		}
		for _, id := range targets {
			if _, exists := s.relationOf[id]; !exists {
				s.relationOf[id] = rel
			}
		}
	}
}

// indexMultiWords prepares one range line per multi-word span, keyed by the id
// of its first token. Spans that cover fewer than two tokens, leave gaps or
// cross a sentence boundary are dropped.
func (s *serializer) indexMultiWords(spans []types.MultiWordSpan) {
	s.multiWords = make(map[string]string, len(spans))
	for _, span := range spans {
		covered := span.Covered(s.order, s.sorted)
		if len(covered) < 2 {
			continue
		}
		first, last := covered[0], covered[len(covered)-1]
		if s.sentenceOf[first] != s.sentenceOf[last] {
			s.log.Warn().Str("span", span.ID).Msg("Multi-word token crosses sentences, skipping")
			continue
		}
		start, end := s.indexOf[first], s.indexOf[last]
		if end-start+1 != len(covered) {
			continue
		}
		if _, exists := s.multiWords[first]; exists {
			continue
		}
		var form strings.Builder
		for _, id := range covered {
			form.WriteString(s.formOf(id))
		}
		record := []string{
			strconv.Itoa(start) + RangeSeparator + strconv.Itoa(end),
			field(form.String()),
		}
		for i := colLemma; i < NumFields; i++ {
			record = append(record, EmptyField)
		}
		s.multiWords[first] = strings.Join(record, FieldSeparator)
	}
}

func (s *serializer) writeSentence(sb *strings.Builder, run sentenceRun) {
	for _, entry := range run.metadata {
		sb.WriteString(metadataLine(entry))
		sb.WriteByte('\n')
	}
	for i, token := range run.tokens {
		if line, ok := s.multiWords[token.ID]; ok {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		head, deprel := s.resolveHead(token.ID)
		record := []string{
			strconv.Itoa(i + 1),
			field(s.textOf(token)),
			optional(s.lemma[token.ID]),
			optional(s.upos[token.ID]),
			optional(s.xpos[token.ID]),
			s.featuresOf(token.ID),
			head,
			deprel,
			EmptyField,
			EmptyField,
		}
		sb.WriteString(strings.Join(record, FieldSeparator))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
}

// resolveHead finds the relation targeting the token and renders HEAD and DEPREL.
func (s *serializer) resolveHead(tokenID string) (string, string) {
	rel, ok := s.relationOf[tokenID]
	if !ok {
		return EmptyField, EmptyField
	}
	if rel.IsRoot() {
		return "0", optional(rel.Value)
	}
	sources, ok := s.lemmaTokens[rel.Source]
	if !ok || len(sources) == 0 {
		s.log.Warn().Str("relation", rel.ID).Str("source", rel.Source).Msg("Relation source does not resolve to a token")
		return EmptyField, EmptyField
	}
	source := sources[0]
	if s.sentenceOf[source] != s.sentenceOf[tokenID] {
		s.log.Warn().Str("relation", rel.ID).Msg("Relation crosses sentences, head left empty")
		return EmptyField, EmptyField
	}
	return strconv.Itoa(s.indexOf[source]), optional(rel.Value)
}

func (s *serializer) featuresOf(tokenID string) string {
	feats := s.features[tokenID]
	if len(feats) == 0 {
		return EmptyField
	}
	sorted := append([]string(nil), feats...)
	sort.Strings(sorted)
	return field(strings.Join(sorted, FeaturesSeparator))
}

func (s *serializer) textOf(token types.GraphToken) string {
	text, ok := token.Offsets().TextOf(s.runes)
	if !ok {
		s.log.Warn().Str("token", token.ID).Int("begin", token.Begin).Int("end", token.End).Msg("Token offsets outside text")
		return ""
	}
	return text
}

func (s *serializer) formOf(tokenID string) string {
	pos, ok := s.order[tokenID]
	if !ok {
		return ""
	}
	return s.textOf(s.tokens[pos])
}

func metadataLine(entry types.MetadataEntry) string {
	if entry.Flag {
		return CommentPrefix + " " + entry.Key
	}
	if entry.Value == "" {
		return CommentPrefix + " " + entry.Key + " " + MetadataSeparator
	}
	return CommentPrefix + " " + entry.Key + " " + MetadataSeparator + " " + entry.Value
}

func optional(value *string) string {
	if value == nil {
		return EmptyField
	}
	return field(*value)
}

var fieldReplacer = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// field keeps a value on one CoNLL-U column.
func field(value string) string {
	value = fieldReplacer.Replace(value)
	if strings.TrimSpace(value) == "" {
		return EmptyField
	}
	return value
}
