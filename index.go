package blobpack

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// indexFile is the on-disk shape of the index block: container-level
// metadata plus the entries in write order. Entries are serialized as an
// array (each record carries its own key) so insertion order survives a
// round trip; keys must still be unique.
type indexFile[R Record] struct {
	FormatVersion uint16    `json:"format_version"`
	Kind          string    `json:"kind"`
	CreatedAt     time.Time `json:"created_at"`
	EntryCount    int       `json:"entry_count"`
	Entries       []R       `json:"entries"`
}

// index is the in-memory entry index: a unique-key map with insertion
// order preserved for display.
type index[R Record] struct {
	createdAt time.Time
	entries   map[string]R
	order     []string
}

func newIndex[R Record]() *index[R] {
	return &index[R]{entries: make(map[string]R)}
}

func (x *index[R]) len() int { return len(x.order) }

func (x *index[R]) get(key string) (R, bool) {
	r, ok := x.entries[key]
	return r, ok
}

func (x *index[R]) put(rec R) {
	key := rec.base().Key
	if _, ok := x.entries[key]; !ok {
		x.order = append(x.order, key)
	}
	x.entries[key] = rec
}

func (x *index[R]) delete(key string) bool {
	if _, ok := x.entries[key]; !ok {
		return false
	}
	delete(x.entries, key)
	for i, k := range x.order {
		if k == key {
			x.order = append(x.order[:i], x.order[i+1:]...)
			break
		}
	}
	return true
}

func (x *index[R]) keys() []string {
	out := make([]string, len(x.order))
	copy(out, x.order)
	return out
}

// marshal serializes the index block for a container of the given kind.
func (x *index[R]) marshal(kindName string, createdAt time.Time) ([]byte, error) {
	doc := indexFile[R]{
		FormatVersion: FormatVersion,
		Kind:          kindName,
		CreatedAt:     createdAt,
		EntryCount:    len(x.order),
		Entries:       make([]R, 0, len(x.order)),
	}
	for _, key := range x.order {
		doc.Entries = append(doc.Entries, x.entries[key])
	}
	return json.MarshalIndent(&doc, "", "  ")
}

// parseIndex decodes an index block and validates it against the expected
// kind. All failures wrap ErrIndexParse: a container with an unusable
// index is unusable as a whole.
func parseIndex[R Record](data []byte, kindName string) (*index[R], error) {
	var doc indexFile[R]
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIndexParse, err)
	}
	if doc.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: index declares format version %d, want %d",
			ErrIndexParse, doc.FormatVersion, FormatVersion)
	}
	if doc.Kind != kindName {
		return nil, fmt.Errorf("%w: index kind %q, want %q", ErrIndexParse, doc.Kind, kindName)
	}

	x := newIndex[R]()
	x.createdAt = doc.CreatedAt
	for _, rec := range doc.Entries {
		// A JSON null decodes to a nil record pointer.
		if v := reflect.ValueOf(rec); v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, fmt.Errorf("%w: null entry", ErrIndexParse)
		}
		key := rec.base().Key
		if key == "" {
			return nil, fmt.Errorf("%w: entry with empty key", ErrIndexParse)
		}
		if _, ok := x.entries[key]; ok {
			return nil, fmt.Errorf("%w: duplicate entry key %q", ErrIndexParse, key)
		}
		x.put(rec)
	}
	return x, nil
}
