package blobpack

import "bytes"

// arena is the payload region under construction: a growable byte buffer
// addressed by a monotonically increasing write cursor. Payload bytes are
// appended, never edited in place; replacing an entry appends fresh bytes
// and abandons the old slice.
type arena struct {
	buf bytes.Buffer
}

// append adds p to the arena and returns the offset it was written at.
func (a *arena) append(p []byte) uint64 {
	off := uint64(a.buf.Len())
	a.buf.Write(p)
	return off
}

// cursor returns the current write cursor (the offset the next append
// will receive).
func (a *arena) cursor() uint64 { return uint64(a.buf.Len()) }

// bytes returns the accumulated payload region.
func (a *arena) bytes() []byte { return a.buf.Bytes() }
