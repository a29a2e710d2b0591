package types

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const payloadJSON = `{
  "id": "doc-7",
  "text": "Hi there",
  "tokens": [{"id": "t1", "begin": 0, "end": 2}, {"id": "t2", "begin": 3, "end": 8}],
  "span-layers": {
    "Lemma": [{"id": "l1", "tokens": ["t1"], "value": "hi"}, {"id": "l2", "begin": "t2", "value": "there"}],
    "UPOS": [{"id": "p1", "begin": "t1", "end": "t2", "value": "INTJ"}],
    "Sentence": [{"id": "s1", "tokens": ["t1", "t2"], "metadata": [{"key": "sent_id", "value": "4"}]}],
    "Comments": [{"id": "c1", "tokens": ["t1"], "value": "ignored"}]
  },
  "relations": [{"id": "r1", "source": "l1", "target": "l2", "value": "discourse"}]
}`

func TestBindDocument(t *testing.T) {
	var payload DocumentPayload
	require.NoError(t, json.Unmarshal([]byte(payloadJSON), &payload))

	doc := BindDocument(payload, DefaultLayerNames())
	require.Equal(t, "doc-7", doc.ID)
	require.Equal(t, "Hi there", *doc.Text)
	require.Len(t, doc.Layers.Lemma, 2)
	require.Len(t, doc.Layers.Upos, 1)
	require.Empty(t, doc.Layers.Features)
	require.Equal(t, Metadata{{Key: "sent_id", Value: "4"}}, doc.Layers.Sentence[0].Metadata)
	require.Equal(t, "t2", doc.Layers.Lemma[1].Begin)
	require.Equal(t, "discourse", *doc.Relations[0].Value)
}

func TestDocumentPayloadRoundTrip(t *testing.T) {
	var payload DocumentPayload
	require.NoError(t, json.Unmarshal([]byte(payloadJSON), &payload))
	names := DefaultLayerNames()
	doc := BindDocument(payload, names)

	out := NewDocumentPayload(doc, names)
	require.Len(t, out.Layers, len(LayerKinds))
	require.NotNil(t, out.Layers[names.MultiWord])

	if diff := cmp.Diff(doc, BindDocument(out, names)); diff != "" {
		t.Errorf("document changed (-want +got):\n%s", diff)
	}
}

func TestMetadataEntryWithoutKey(t *testing.T) {
	var md Metadata
	require.Error(t, json.Unmarshal([]byte(`[{"value": "x"}]`), &md))
}

func TestMetadataSet(t *testing.T) {
	var md Metadata
	md.Set(MetadataEntry{Key: "sent_id", Value: "1"})
	md.Set(MetadataEntry{Key: "text", Value: "a"})
	md.Set(MetadataEntry{Key: "sent_id", Value: "2"})

	require.Equal(t, Metadata{{Key: "sent_id", Value: "2"}, {Key: "text", Value: "a"}}, md)
	entry, ok := md.Get("text")
	require.True(t, ok)
	require.Equal(t, "a", entry.Value)
}
