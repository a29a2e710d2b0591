package types

import (
	"encoding/json"
	"errors"
)

// MetadataEntry is one sentence comment. Flag entries come from a bare `# key`.
type MetadataEntry struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	Flag  bool   `json:"flag,omitempty"`
}

// Metadata keeps sentence comments in insertion order.
type Metadata []MetadataEntry

func (md Metadata) Len() int {
	return len(md)
}

func (md Metadata) Get(key string) (MetadataEntry, bool) {
	for _, entry := range md {
		if entry.Key == key {
			return entry, true
		}
	}
	return MetadataEntry{}, false
}

// Set replaces an existing key in place, otherwise appends.
func (md *Metadata) Set(entry MetadataEntry) {
	for i := range *md {
		if (*md)[i].Key == entry.Key {
			(*md)[i] = entry
			return
		}
	}
	*md = append(*md, entry)
}

func (md Metadata) Clone() Metadata {
	if md == nil {
		return nil
	}
	return append(Metadata(nil), md...)
}

func (entry *MetadataEntry) UnmarshalJSON(b []byte) error {
	type plain MetadataEntry
	var raw plain
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Key == "" {
		return errors.New("metadata entry without key")
	}
	*entry = MetadataEntry(raw)
	return nil
}
