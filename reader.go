package blobpack

import (
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	"github.com/blobpack/blobpack/internal/arc"
	"github.com/blobpack/blobpack/internal/comp"
	"github.com/blobpack/blobpack/internal/flock"
	"github.com/blobpack/blobpack/internal/layout"
)

// Reader provides random access to the entries of a container.
//
// The header and index are parsed eagerly on Open; magic or version
// mismatches and malformed indexes fail fast and leave no usable Reader.
// Entry lookups are in-memory map lookups, and each extraction performs
// one seek plus a bounded read against the payload region.
//
// A Reader assumes the underlying file is static for its lifetime. It
// holds a shared advisory lock so a well-behaved writer will not clobber
// the container while it is open. Methods are safe for concurrent use.
type Reader[R Record] struct {
	kind        Kind[R]
	path        string
	f           *os.File
	lock        *flock.Lock
	idx         *index[R]
	dataOffset  int64
	payloadSize int64
	cfg         readerConfig
	group       singleflight.Group
}

// Open opens the container at path as the given kind.
//
// It fails with ErrFormat when the magic tag belongs to another kind (or
// no container at all), ErrUnsupportedVersion on a format version
// mismatch, and ErrIndexParse when the index block cannot be decoded.
func Open[R Record](kind Kind[R], path string, opts ...ReaderOption) (*Reader[R], error) {
	cfg := newReaderConfig(opts)

	lock, err := flock.Shared(path)
	if err != nil {
		return nil, lockErr(err)
	}
	f, err := os.Open(path)
	if err != nil {
		lock.Release()
		return nil, err
	}

	r := &Reader[R]{kind: kind, path: path, f: f, lock: lock, cfg: cfg}
	if err := r.loadIndex(); err != nil {
		f.Close()
		lock.Release()
		return nil, err
	}
	return r, nil
}

func (r *Reader[R]) loadIndex() error {
	hdr, err := layout.ReadHeader(r.f)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFormat, err)
	}
	if hdr.Magic != r.kind.magic {
		return fmt.Errorf("%w: %q", ErrFormat, hdr.Magic[:])
	}
	if hdr.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, hdr.FormatVersion, FormatVersion)
	}

	indexBytes := make([]byte, hdr.IndexLength)
	if _, err := io.ReadFull(r.f, indexBytes); err != nil {
		return fmt.Errorf("%w: truncated index block: %s", ErrIndexParse, err)
	}
	idx, err := parseIndex[R](indexBytes, r.kind.name)
	if err != nil {
		return err
	}

	info, err := r.f.Stat()
	if err != nil {
		return err
	}
	r.idx = idx
	r.dataOffset = hdr.DataOffset()
	r.payloadSize = info.Size() - r.dataOffset
	if r.payloadSize < 0 {
		return fmt.Errorf("%w: index length exceeds file size", ErrIndexParse)
	}
	return nil
}

// Close releases the file handle and the shared lock.
func (r *Reader[R]) Close() error {
	err := r.f.Close()
	if lerr := r.lock.Release(); err == nil {
		err = lerr
	}
	return err
}

// Record returns the entry for key, if present.
func (r *Reader[R]) Record(key string) (R, bool) { return r.idx.get(key) }

// Keys returns all entry keys in index order.
func (r *Reader[R]) Keys() []string { return r.idx.keys() }

// Len returns the number of entries.
func (r *Reader[R]) Len() int { return r.idx.len() }

// CreatedAt returns the container's creation timestamp from the index.
func (r *Reader[R]) CreatedAt() time.Time { return r.idx.createdAt }

// Path returns the path the container was opened from.
func (r *Reader[R]) Path() string { return r.path }

// Size returns the total on-disk size of the container in bytes.
func (r *Reader[R]) Size() int64 { return r.dataOffset + r.payloadSize }

// Records returns an iterator over all entries in index order.
func (r *Reader[R]) Records() iter.Seq[R] {
	return func(yield func(R) bool) {
		for _, key := range r.idx.order {
			if !yield(r.idx.entries[key]) {
				return
			}
		}
	}
}

// Extract unpacks the entry for key into destDir/key, creating
// directories as needed.
//
// The payload slice is read, decompressed, and (unless disabled with
// ExtractWithVerify(false)) checked against the recorded checksum before
// anything is written: an ErrIntegrity or ErrCompression failure leaves
// the destination untouched.
func (r *Reader[R]) Extract(key, destDir string, opts ...ExtractOption) error {
	cfg := newExtractConfig(opts)
	rec, ok := r.idx.get(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	tarData, err := r.decode(rec.base(), cfg.verify)
	if err != nil {
		return err
	}

	target := filepath.Join(destDir, key)
	if err := arc.Unpack(tarData, target); err != nil {
		return fmt.Errorf("%w: unpack %q: %s", ErrArchive, key, err)
	}
	r.cfg.log().Debug("extracted entry", "key", key, "dest", target, "size", len(tarData))
	return nil
}

// ExtractBytes returns the decompressed archive bytes for key without
// writing to disk. The checksum is always verified.
//
// Concurrent calls for the same content are deduplicated and may receive
// the same backing slice; callers must treat it as read-only.
func (r *Reader[R]) ExtractBytes(key string) ([]byte, error) {
	rec, ok := r.idx.get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	b := rec.base()

	data, err, _ := r.group.Do(b.Checksum, func() (any, error) {
		return r.decode(b, true)
	})
	if err != nil {
		return nil, err
	}
	return data.([]byte), nil
}

// ExtractMany extracts each requested key independently, expanding the
// request to its dependency closure when ExtractWithDependencies(true)
// is set. One entry's failure does not abort the batch.
//
// The result maps every attempted key to its outcome (nil for success);
// the batch as a whole succeeded only if every value is nil.
func (r *Reader[R]) ExtractMany(keys []string, destDir string, opts ...ExtractOption) map[string]error {
	cfg := newExtractConfig(opts)
	if cfg.resolveDeps {
		resolved := r.Resolve(keys...)
		if len(resolved) > len(keys) {
			r.cfg.log().Debug("expanded extraction set",
				"requested", len(keys), "resolved", len(resolved))
		}
		keys = resolved
	}

	extractOpts := []ExtractOption{ExtractWithVerify(cfg.verify)}
	results := make(map[string]error, len(keys))
	for _, key := range keys {
		results[key] = r.Extract(key, destDir, extractOpts...)
	}
	return results
}

// VerifyAll decompresses every entry and checks it against its recorded
// checksum, without writing anything. The result maps each key to its
// outcome (nil for success).
func (r *Reader[R]) VerifyAll() map[string]error {
	results := make(map[string]error, r.idx.len())
	for _, key := range r.idx.order {
		rec := r.idx.entries[key]
		_, err := r.decode(rec.base(), true)
		results[key] = err
	}
	return results
}

// decode reads an entry's payload slice, decompresses it, and optionally
// verifies the checksum.
func (r *Reader[R]) decode(b *EntryBase, verify bool) ([]byte, error) {
	compressed, err := r.readPayload(b)
	if err != nil {
		return nil, err
	}

	tarData, err := comp.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %q: %s", ErrCompression, b.Key, err)
	}

	if verify {
		got := digest.SHA256.FromBytes(tarData).Encoded()
		if got != b.Checksum {
			return nil, fmt.Errorf("%w: entry %q: got %s, want %s", ErrIntegrity, b.Key, got, b.Checksum)
		}
	}
	return tarData, nil
}

// readPayload reads exactly the entry's compressed slice from the
// payload region.
func (r *Reader[R]) readPayload(b *EntryBase) ([]byte, error) {
	end := b.Offset + b.CompressedSize
	if end < b.Offset || end > uint64(r.payloadSize) {
		return nil, fmt.Errorf("blobpack: entry %q payload slice [%d,%d) outside region of %d bytes",
			b.Key, b.Offset, end, r.payloadSize)
	}

	buf := make([]byte, b.CompressedSize)
	if _, err := r.f.ReadAt(buf, r.dataOffset+int64(b.Offset)); err != nil {
		return nil, fmt.Errorf("read payload for %q: %w", b.Key, err)
	}
	return buf, nil
}
