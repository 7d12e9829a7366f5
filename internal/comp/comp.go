// Package comp wraps the zlib (DEFLATE) codec used for entry payloads.
// Output is deterministic for a given input and level, so compressed
// sizes recorded in an index stay stable across rebuilds.
package comp

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// DefaultLevel is the compression level used when none is configured.
const DefaultLevel = 6

// Compress deflates data at the given level (zlib.BestSpeed through
// zlib.BestCompression).
func Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("compression level %d: %w", level, err)
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress inflates a zlib stream. It fails on malformed input,
// including a corrupted stream checksum, which makes it the first line of
// payload corruption detection.
func Decompress(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(zr)
	if cerr := zr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
