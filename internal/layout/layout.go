// Package layout defines the fixed container header: an 8-byte magic tag,
// a little-endian uint16 format version, and a little-endian uint32 length
// of the index block that immediately follows. The payload region starts
// right after the index.
package layout

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the byte length of the fixed header.
const HeaderSize = 8 + 2 + 4

// Header is the decoded fixed header of a container file.
type Header struct {
	Magic         [8]byte
	FormatVersion uint16
	IndexLength   uint32
}

// DataOffset returns the file offset at which the payload region starts.
func (h Header) DataOffset() int64 {
	return HeaderSize + int64(h.IndexLength)
}

// Encode appends the wire form of h to buf and returns the result.
func (h Header) Encode(buf []byte) []byte {
	buf = append(buf, h.Magic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, h.FormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, h.IndexLength)
	return buf
}

// Write writes the wire form of h to w.
func (h Header) Write(w io.Writer) error {
	_, err := w.Write(h.Encode(make([]byte, 0, HeaderSize)))
	return err
}

// ReadHeader reads and decodes a fixed header from r. It performs no
// validation beyond length; magic and version checks belong to the caller,
// which knows the expected container kind.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	var h Header
	copy(h.Magic[:], buf[:8])
	h.FormatVersion = binary.LittleEndian.Uint16(buf[8:10])
	h.IndexLength = binary.LittleEndian.Uint32(buf[10:14])
	return h, nil
}
