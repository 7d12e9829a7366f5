package layout

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	h := Header{
		Magic:         [8]byte{'A', 'P', 'P', 'B', 'L', 'O', 'B', '1'},
		FormatVersion: 1,
		IndexLength:   4096,
	}

	var buf bytes.Buffer
	require.NoError(t, h.Write(&buf))
	assert.Equal(t, HeaderSize, buf.Len())

	got, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestHeaderWireFormat(t *testing.T) {
	t.Parallel()

	h := Header{
		Magic:         [8]byte{'U', 'S', 'E', 'R', 'B', 'L', 'O', 'B'},
		FormatVersion: 0x0102,
		IndexLength:   0x04030201,
	}

	wire := h.Encode(nil)
	require.Len(t, wire, HeaderSize)
	assert.Equal(t, []byte("USERBLOB"), wire[:8])
	// Little-endian fields.
	assert.Equal(t, []byte{0x02, 0x01}, wire[8:10])
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, wire[10:14])
}

func TestDataOffset(t *testing.T) {
	t.Parallel()

	h := Header{IndexLength: 100}
	assert.Equal(t, int64(HeaderSize+100), h.DataOffset())
}

func TestReadHeaderTruncated(t *testing.T) {
	t.Parallel()

	_, err := ReadHeader(bytes.NewReader([]byte("short")))
	require.Error(t, err)
}
