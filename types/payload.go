package types

// SpanPayload is the wire shape shared by every span layer.
type SpanPayload struct {
	ID string `json:"id"`
	TokenRange
	Value    *string  `json:"value"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// DocumentPayload is the JSON form of a Document. Span layers are keyed by
// their wire names.
type DocumentPayload struct {
	ID        string                   `json:"id,omitempty"`
	Name      string                   `json:"name,omitempty"`
	Text      *string                  `json:"text"`
	Tokens    []GraphToken             `json:"tokens"`
	Layers    map[string][]SpanPayload `json:"span-layers"`
	Relations []Relation               `json:"relations"`
}

// BindDocument converts a payload into typed layers. Layers with unknown names
// are ignored.
func BindDocument(payload DocumentPayload, names LayerNames) Document {
	doc := Document{
		ID:        payload.ID,
		Name:      payload.Name,
		Text:      payload.Text,
		Tokens:    payload.Tokens,
		Relations: payload.Relations,
	}
	for name, spans := range payload.Layers {
		kind, ok := names.Kind(name)
		if !ok {
			continue
		}
		for _, span := range spans {
			switch kind {
			case LayerLemma:
				doc.Layers.Lemma = append(doc.Layers.Lemma, span.valueSpan())
			case LayerUpos:
				doc.Layers.Upos = append(doc.Layers.Upos, span.valueSpan())
			case LayerXpos:
				doc.Layers.Xpos = append(doc.Layers.Xpos, span.valueSpan())
			case LayerFeatures:
				doc.Layers.Features = append(doc.Layers.Features, span.valueSpan())
			case LayerSentence:
				doc.Layers.Sentence = append(doc.Layers.Sentence, SentenceSpan{
					ID:         span.ID,
					TokenRange: span.TokenRange,
					Metadata:   span.Metadata,
				})
			case LayerMultiWord:
				doc.Layers.MultiWord = append(doc.Layers.MultiWord, MultiWordSpan{
					ID:         span.ID,
					TokenRange: span.TokenRange,
				})
			}
		}
	}
	return doc
}

func NewDocumentPayload(doc Document, names LayerNames) DocumentPayload {
	payload := DocumentPayload{
		ID:        doc.ID,
		Name:      doc.Name,
		Text:      doc.Text,
		Tokens:    doc.Tokens,
		Relations: doc.Relations,
		Layers:    make(map[string][]SpanPayload, len(LayerKinds)),
	}
	if payload.Tokens == nil {
		payload.Tokens = []GraphToken{}
	}
	if payload.Relations == nil {
		payload.Relations = []Relation{}
	}
	addValueLayer := func(kind LayerKind, spans []ValueSpan) {
		out := make([]SpanPayload, 0, len(spans))
		for _, span := range spans {
			out = append(out, SpanPayload{ID: span.ID, TokenRange: span.TokenRange, Value: span.Value})
		}
		payload.Layers[names.Name(kind)] = out
	}
	addValueLayer(LayerLemma, doc.Layers.Lemma)
	addValueLayer(LayerUpos, doc.Layers.Upos)
	addValueLayer(LayerXpos, doc.Layers.Xpos)
	addValueLayer(LayerFeatures, doc.Layers.Features)

	sentences := make([]SpanPayload, 0, len(doc.Layers.Sentence))
	for _, span := range doc.Layers.Sentence {
		sentences = append(sentences, SpanPayload{ID: span.ID, TokenRange: span.TokenRange, Metadata: span.Metadata})
	}
	payload.Layers[names.Sentence] = sentences

	multiWords := make([]SpanPayload, 0, len(doc.Layers.MultiWord))
	for _, span := range doc.Layers.MultiWord {
		multiWords = append(multiWords, SpanPayload{ID: span.ID, TokenRange: span.TokenRange})
	}
	payload.Layers[names.MultiWord] = multiWords
	return payload
}

func (span SpanPayload) valueSpan() ValueSpan {
	return ValueSpan{ID: span.ID, TokenRange: span.TokenRange, Value: span.Value}
}
