package comp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("blobpack payload "), 1024)

	compressed, err := Compress(data, DefaultLevel)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(data))

	got, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRoundTripEmpty(t *testing.T) {
	t.Parallel()

	compressed, err := Compress(nil, DefaultLevel)
	require.NoError(t, err)

	got, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLevelAffectsOutputSize(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("abcdefgh12345678"), 4096)

	fast, err := Compress(data, 1)
	require.NoError(t, err)
	best, err := Compress(data, 9)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(best), len(fast))
}

func TestInvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := Compress([]byte("x"), 42)
	require.Error(t, err)
}

func TestDecompressCorrupt(t *testing.T) {
	t.Parallel()

	compressed, err := Compress([]byte("some payload bytes"), DefaultLevel)
	require.NoError(t, err)

	// Damage the stream body; either inflation or the trailing adler32
	// check must fail.
	corrupted := bytes.Clone(compressed)
	corrupted[len(corrupted)/2] ^= 0xFF
	_, err = Decompress(corrupted)
	require.Error(t, err)
}

func TestDecompressGarbage(t *testing.T) {
	t.Parallel()

	_, err := Decompress([]byte("not a zlib stream"))
	require.Error(t, err)
}
