package blobpack

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appEntry(key string, deps ...string) *ApplicationEntry {
	return &ApplicationEntry{EntryBase: EntryBase{
		Key:          key,
		Checksum:     "0000",
		Dependencies: deps,
	}}
}

func TestIndexRoundTripPreservesOrder(t *testing.T) {
	t.Parallel()

	x := newIndex[*ApplicationEntry]()
	x.put(appEntry("zeta"))
	x.put(appEntry("alpha"))
	x.put(appEntry("mid"))

	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := x.marshal("applications", createdAt)
	require.NoError(t, err)

	parsed, err := parseIndex[*ApplicationEntry](data, "applications")
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, parsed.keys())
	assert.True(t, parsed.createdAt.Equal(createdAt))
	assert.Equal(t, 3, parsed.len())
}

func TestIndexPutReplacesInPlace(t *testing.T) {
	t.Parallel()

	x := newIndex[*ApplicationEntry]()
	x.put(appEntry("a"))
	x.put(appEntry("b"))

	replacement := appEntry("a")
	replacement.Version = "2.0"
	x.put(replacement)

	assert.Equal(t, []string{"a", "b"}, x.keys())
	got, ok := x.get("a")
	require.True(t, ok)
	assert.Equal(t, "2.0", got.Version)
}

func TestIndexDelete(t *testing.T) {
	t.Parallel()

	x := newIndex[*ApplicationEntry]()
	x.put(appEntry("a"))
	x.put(appEntry("b"))
	x.put(appEntry("c"))

	assert.True(t, x.delete("b"))
	assert.Equal(t, []string{"a", "c"}, x.keys())
	assert.False(t, x.delete("b"))
	_, ok := x.get("b")
	assert.False(t, ok)
}

func TestParseIndexKindMismatch(t *testing.T) {
	t.Parallel()

	x := newIndex[*ApplicationEntry]()
	data, err := x.marshal("applications", time.Now())
	require.NoError(t, err)

	_, err = parseIndex[*ApplicationEntry](data, "binaries")
	require.ErrorIs(t, err, ErrIndexParse)
}

func TestParseIndexVersionMismatch(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]any{
		"format_version": 99,
		"kind":           "applications",
		"entries":        []any{},
	})
	require.NoError(t, err)

	_, err = parseIndex[*ApplicationEntry](data, "applications")
	require.ErrorIs(t, err, ErrIndexParse)
}

func TestParseIndexDuplicateKey(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]any{
		"format_version": FormatVersion,
		"kind":           "applications",
		"entries": []map[string]any{
			{"key": "dup", "checksum": "aa"},
			{"key": "dup", "checksum": "bb"},
		},
	})
	require.NoError(t, err)

	_, err = parseIndex[*ApplicationEntry](data, "applications")
	require.ErrorIs(t, err, ErrIndexParse)
}

func TestParseIndexEmptyKey(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]any{
		"format_version": FormatVersion,
		"kind":           "applications",
		"entries":        []map[string]any{{"key": ""}},
	})
	require.NoError(t, err)

	_, err = parseIndex[*ApplicationEntry](data, "applications")
	require.ErrorIs(t, err, ErrIndexParse)
}

func TestParseIndexNullEntry(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]any{
		"format_version": FormatVersion,
		"kind":           "applications",
		"entries":        []any{nil},
	})
	require.NoError(t, err)

	_, err = parseIndex[*ApplicationEntry](data, "applications")
	require.ErrorIs(t, err, ErrIndexParse)
}

func TestParseIndexMalformed(t *testing.T) {
	t.Parallel()

	_, err := parseIndex[*ApplicationEntry]([]byte("{not json"), "applications")
	require.ErrorIs(t, err, ErrIndexParse)
}

func TestArenaAppend(t *testing.T) {
	t.Parallel()

	var a arena
	assert.Equal(t, uint64(0), a.cursor())

	off1 := a.append([]byte("abc"))
	off2 := a.append([]byte("defg"))
	assert.Equal(t, uint64(0), off1)
	assert.Equal(t, uint64(3), off2)
	assert.Equal(t, uint64(7), a.cursor())
	assert.Equal(t, []byte("abcdefg"), a.bytes())
}
