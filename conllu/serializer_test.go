package conllu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"plaid.dev/conllu/types"
	"plaid.dev/conllu/utils"
)

func buildDocument(t *testing.T, input string) types.Document {
	parsed, err := ParseString(input)
	require.NoError(t, err)
	doc, err := BuildDocument(parsed, BuildOptions{ID: "doc-1"})
	require.NoError(t, err)
	return doc
}

func TestBuildDocument(t *testing.T) {
	doc := buildDocument(t, cannot)

	require.Equal(t, "I can't go", *doc.Text)
	require.Len(t, doc.Tokens, 4)
	require.Len(t, doc.Layers.Lemma, 4)
	require.Len(t, doc.Layers.Upos, 4)
	require.Len(t, doc.Layers.Features, 4)
	require.Len(t, doc.Layers.Sentence, 1)
	require.Equal(t, []string{"token-2", "token-3"}, doc.Layers.MultiWord[0].Tokens)
	require.Len(t, doc.Relations, 4)

	// constituents split the surface form in order
	ca, nt := doc.Tokens[1], doc.Tokens[2]
	require.Equal(t, types.Offsets{Begin: 2, End: 4}, ca.Offsets())
	require.Equal(t, types.Offsets{Begin: 4, End: 7}, nt.Offsets())
	require.Equal(t, 2, *ca.Precedence)

	root := doc.Relations[3]
	require.True(t, root.IsRoot())
	require.Equal(t, "lemma-4", root.Source)
	require.Equal(t, "root", *root.Value)
}

func TestSerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple sentence",
			input:    theDog,
			expected: theDog + "\n",
		},
		{
			name:     "multi-word token and metadata",
			input:    cannot,
			expected: strings.Replace(cannot, "SpaceAfter=No", "_", 1) + "\n",
		},
		{
			name:     "two sentences",
			input:    theDog + "\n" + theDog,
			expected: theDog + "\n" + theDog + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := buildDocument(t, tt.input)
			require.Equal(t, tt.expected, Serialize(doc, SerializeOptions{}))
		})
	}
}

func TestSerializeRootHasEmptyDeps(t *testing.T) {
	out := Serialize(buildDocument(t, theDog), SerializeOptions{})
	rows := strings.Split(strings.TrimSpace(out), "\n")
	root := strings.Split(rows[1], FieldSeparator)
	require.Equal(t, "0", root[colHead])
	require.Equal(t, "root", root[colDeprel])
	require.Equal(t, EmptyField, root[colDeps])
}

func TestSerializeSortsFeatures(t *testing.T) {
	input := "1\tdogs\tdog\tNOUN\t_\tNumber=Plur|Gender=Masc\t0\troot\t_\t_\n"
	out := Serialize(buildDocument(t, input), SerializeOptions{})
	require.Contains(t, out, "\tGender=Masc|Number=Plur\t")
}

func TestSerializeCrossSentenceRelation(t *testing.T) {
	doc := buildDocument(t, theDog+"\n"+theDog)
	// "The" of the second sentence now points at "dog" of the first
	doc.Relations[2].Source = "lemma-2"

	out := Serialize(doc, SerializeOptions{})
	sentences := strings.Split(strings.TrimSpace(out), "\n\n")
	require.Len(t, sentences, 2)
	require.Equal(t, theDog, sentences[0]+"\n")
	require.Equal(t, "1\tThe\tthe\tDET\t_\t_\t_\t_\t_\t_", strings.Split(sentences[1], "\n")[0])
}

func TestSerializeUnresolvedReferences(t *testing.T) {
	doc := buildDocument(t, theDog)
	doc.Tokens[0].End = 100
	doc.Relations[0].Source = "lemma-404"
	doc.Relations = append(doc.Relations, types.Relation{ID: "dangling", Source: "x", Target: "y"})

	out := Serialize(doc, SerializeOptions{})
	require.Equal(t, "1\t_\tthe\tDET\t_\t_\t_\t_\t_\t_\n"+
		"2\tdog\tdog\tNOUN\t_\t_\t0\troot\t_\t_\n\n", out)
}

func TestSerializeWithoutSentenceSpans(t *testing.T) {
	doc := buildDocument(t, theDog+"\n"+theDog)
	doc.Layers.Sentence = nil

	out := Serialize(doc, SerializeOptions{})
	require.Equal(t, 1, strings.Count(out, "\n\n"))
	require.Contains(t, out, "\n4\tdog\tdog\tNOUN\t")
}

func TestSerializeRangeTokens(t *testing.T) {
	text := "Hello world"
	doc := types.Document{
		Text: &text,
		Tokens: []types.GraphToken{
			{ID: "b", Begin: 6, End: 11},
			{ID: "a", Begin: 0, End: 5},
		},
	}
	sentence := types.SentenceSpan{ID: "s"}
	sentence.Begin, sentence.End = "a", "b"
	lemma := types.ValueSpan{ID: "l", Value: utils.StringPtr("greeting")}
	lemma.Begin, lemma.End = "a", "b"
	doc.Layers.Sentence = []types.SentenceSpan{sentence}
	doc.Layers.Lemma = []types.ValueSpan{lemma}

	out := Serialize(doc, SerializeOptions{})
	require.Equal(t, "1\tHello\tgreeting\t_\t_\t_\t_\t_\t_\t_\n"+
		"2\tworld\tgreeting\t_\t_\t_\t_\t_\t_\t_\n\n", out)
}

func TestSerializeDegenerateDocument(t *testing.T) {
	require.Equal(t, types.DefaultPlaceholder+"\n", Serialize(types.Document{}, SerializeOptions{}))

	empty := ""
	out := Serialize(types.Document{Text: &empty}, SerializeOptions{Placeholder: "# nothing here"})
	require.Equal(t, "# nothing here\n", out)

	out = Serialize(types.Document{
		Text:   &empty,
		Tokens: []types.GraphToken{{ID: "token-1", Begin: 0, End: 0}},
	}, SerializeOptions{Placeholder: "# nothing here"})
	require.Equal(t, "# nothing here\n", out)
}
