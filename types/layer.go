package types

type LayerKind byte

const (
	LayerLemma LayerKind = iota
	LayerUpos
	LayerXpos
	LayerFeatures
	LayerSentence
	LayerMultiWord
)

var LayerKinds = []LayerKind{LayerLemma, LayerUpos, LayerXpos, LayerFeatures, LayerSentence, LayerMultiWord}

func (kind LayerKind) Name() string {
	switch kind {
	case LayerLemma:
		return "lemma"
	case LayerUpos:
		return "upos"
	case LayerXpos:
		return "xpos"
	case LayerFeatures:
		return "features"
	case LayerSentence:
		return "sentence"
	case LayerMultiWord:
		return "multi_word"
	default:
		return "unknown"
	}
}

// LayerNames are the wire names of the span layers in the annotation store.
type LayerNames struct {
	Lemma     string `yaml:"lemma" json:"lemma"`
	Upos      string `yaml:"upos" json:"upos"`
	Xpos      string `yaml:"xpos" json:"xpos"`
	Features  string `yaml:"features" json:"features"`
	Sentence  string `yaml:"sentence" json:"sentence"`
	MultiWord string `yaml:"multi_word" json:"multi_word"`
}

func DefaultLayerNames() LayerNames {
	return LayerNames{
		Lemma:     "Lemma",
		Upos:      "UPOS",
		Xpos:      "XPOS",
		Features:  "Features",
		Sentence:  "Sentence",
		MultiWord: "Multi-word Tokens",
	}
}

func (names LayerNames) Name(kind LayerKind) string {
	switch kind {
	case LayerLemma:
		return names.Lemma
	case LayerUpos:
		return names.Upos
	case LayerXpos:
		return names.Xpos
	case LayerFeatures:
		return names.Features
	case LayerSentence:
		return names.Sentence
	case LayerMultiWord:
		return names.MultiWord
	default:
		return ""
	}
}

// Kind resolves a wire name. Unknown names report false.
func (names LayerNames) Kind(name string) (LayerKind, bool) {
	for _, kind := range LayerKinds {
		if names.Name(kind) == name {
			return kind, true
		}
	}
	return 0, false
}

// WithDefaults fills empty names from DefaultLayerNames.
func (names LayerNames) WithDefaults() LayerNames {
	defaults := DefaultLayerNames()
	if names.Lemma == "" {
		names.Lemma = defaults.Lemma
	}
	if names.Upos == "" {
		names.Upos = defaults.Upos
	}
	if names.Xpos == "" {
		names.Xpos = defaults.Xpos
	}
	if names.Features == "" {
		names.Features = defaults.Features
	}
	if names.Sentence == "" {
		names.Sentence = defaults.Sentence
	}
	if names.MultiWord == "" {
		names.MultiWord = defaults.MultiWord
	}
	return names
}

// Distinct reports whether every layer has its own name.
func (names LayerNames) Distinct() bool {
	seen := make(map[string]bool, len(LayerKinds))
	for _, kind := range LayerKinds {
		name := names.Name(kind)
		if seen[name] {
			return false
		}
		seen[name] = true
	}
	return true
}
