package blobpack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/blobpack/blobpack/internal/arc"
	"github.com/blobpack/blobpack/internal/comp"
	"github.com/blobpack/blobpack/internal/flock"
	"github.com/blobpack/blobpack/internal/layout"
)

// Writer assembles a container: it packs source trees into compressed
// payload slices, records their metadata in the index, and serializes the
// whole container with Build.
//
// A Writer owns its index and payload arena exclusively. It holds an
// exclusive advisory lock on the target path from creation until Close,
// so two writers cannot race on one container.
type Writer[R Record] struct {
	kind  Kind[R]
	path  string
	idx   *index[R]
	arena arena
	lock  *flock.Lock
	cfg   writerConfig
}

// NewWriter creates a Writer for a new container at path. Nothing is
// written to disk until Build.
func NewWriter[R Record](kind Kind[R], path string, opts ...WriterOption) (*Writer[R], error) {
	cfg := newWriterConfig(opts)
	lock, err := flock.Exclusive(path)
	if err != nil {
		return nil, lockErr(err)
	}
	return &Writer[R]{
		kind: kind,
		path: path,
		idx:  newIndex[R](),
		lock: lock,
		cfg:  cfg,
	}, nil
}

// OpenWriter loads an existing container at path for further additions.
// The index is parsed and the payload region is rehydrated into the
// write arena, so subsequent Adds append after the existing payload.
func OpenWriter[R Record](kind Kind[R], path string, opts ...WriterOption) (*Writer[R], error) {
	cfg := newWriterConfig(opts)
	lock, err := flock.Exclusive(path)
	if err != nil {
		return nil, lockErr(err)
	}

	w := &Writer[R]{kind: kind, path: path, lock: lock, cfg: cfg}
	if err := w.load(); err != nil {
		lock.Release()
		return nil, err
	}
	cfg.log().Debug("loaded container",
		"path", path, "kind", kind.name, "entries", w.idx.len(), "payload_bytes", w.arena.cursor())
	return w, nil
}

func (w *Writer[R]) load() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}

	r := bytes.NewReader(data)
	hdr, err := layout.ReadHeader(r)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFormat, err)
	}
	if hdr.Magic != w.kind.magic {
		return fmt.Errorf("%w: %q", ErrFormat, hdr.Magic[:])
	}
	if hdr.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, hdr.FormatVersion, FormatVersion)
	}

	indexBytes := make([]byte, hdr.IndexLength)
	if _, err := io.ReadFull(r, indexBytes); err != nil {
		return fmt.Errorf("%w: truncated index block: %s", ErrIndexParse, err)
	}
	idx, err := parseIndex[R](indexBytes, w.kind.name)
	if err != nil {
		return err
	}

	w.idx = idx
	w.arena.append(data[hdr.DataOffset():])
	return nil
}

// Add packs the tree at sourceDir, compresses and hashes it, appends the
// compressed bytes to the payload arena, and records rec in the index.
// The payload fields of rec (size, compressed size, offset, checksum,
// files, created-at) are filled in by Add; callers supply identity and
// advisory metadata only.
//
// Add fails with ErrDuplicateKey if the key already exists and with
// ErrSourceNotFound if sourceDir does not. No disk I/O happens on the
// container until Build.
func (w *Writer[R]) Add(ctx context.Context, rec R, sourceDir string) error {
	b := rec.base()
	if b.Key == "" {
		return errors.New("blobpack: empty entry key")
	}
	if _, ok := w.idx.get(b.Key); ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, b.Key)
	}
	if _, err := os.Stat(sourceDir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, sourceDir)
		}
		return err
	}

	tarData, stats, err := arc.Pack(ctx, sourceDir)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: pack %s: %s", ErrArchive, sourceDir, err)
	}

	compressed, err := comp.Compress(tarData, w.cfg.level)
	if err != nil {
		return err
	}

	now := w.cfg.now()
	files := make([]FileStat, len(stats))
	for i, s := range stats {
		files[i] = FileStat{Path: s.Path, Size: s.Size, Mode: s.Mode}
	}

	b.Size = uint64(len(tarData))
	b.CompressedSize = uint64(len(compressed))
	b.Offset = w.arena.append(compressed)
	b.Checksum = digest.SHA256.FromBytes(tarData).Encoded()
	b.Files = files
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if fin, ok := any(rec).(finalizer); ok {
		fin.finalize(files, now)
	}
	w.idx.put(rec)

	w.cfg.log().Debug("added entry",
		"key", b.Key,
		"size", b.Size,
		"compressed_size", b.CompressedSize,
		"offset", b.Offset,
		"files", len(files),
		"dependencies", len(b.Dependencies))
	return nil
}

// Remove deletes key from the index. The entry's payload bytes stay in
// the arena, orphaned: reclaiming them requires rebuilding the container
// from original sources, which the Writer cannot do on its own.
func (w *Writer[R]) Remove(key string) error {
	if !w.idx.delete(key) {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	w.cfg.log().Debug("removed entry", "key", key)
	return nil
}

// Build serializes header, index, and payload region to the target path.
// The file is written to a temporary sibling and renamed into place, so a
// crash mid-build leaves any previous container intact.
func (w *Writer[R]) Build() error {
	indexBytes, err := w.idx.marshal(w.kind.name, w.cfg.now())
	if err != nil {
		return err
	}
	if len(indexBytes) > math.MaxUint32 {
		return fmt.Errorf("blobpack: index block too large (%d bytes)", len(indexBytes))
	}

	hdr := layout.Header{
		Magic:         w.kind.magic,
		FormatVersion: FormatVersion,
		IndexLength:   uint32(len(indexBytes)),
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o750); err != nil {
		return fmt.Errorf("create container directory: %w", err)
	}
	if err := w.writeAtomic(hdr, indexBytes); err != nil {
		return err
	}

	w.cfg.log().Info("built container",
		"path", w.path,
		"kind", w.kind.name,
		"entries", w.idx.len(),
		"index_bytes", len(indexBytes),
		"payload_bytes", w.arena.cursor())
	return nil
}

// writeAtomic writes the container to a temp file then renames it over
// the target.
func (w *Writer[R]) writeAtomic(hdr layout.Header, indexBytes []byte) error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".blobpack-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	err = hdr.Write(tmp)
	if err == nil {
		_, err = tmp.Write(indexBytes)
	}
	if err == nil {
		_, err = tmp.Write(w.arena.bytes())
	}
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Record returns the entry for key, if present.
func (w *Writer[R]) Record(key string) (R, bool) {
	return w.idx.get(key)
}

// Keys returns all entry keys in write order.
func (w *Writer[R]) Keys() []string { return w.idx.keys() }

// Len returns the number of entries in the index.
func (w *Writer[R]) Len() int { return w.idx.len() }

// PayloadSize returns the current size of the payload arena in bytes.
func (w *Writer[R]) PayloadSize() uint64 { return w.arena.cursor() }

// Close releases the writer's advisory lock. It does not build; pending
// additions are discarded unless Build was called.
func (w *Writer[R]) Close() error {
	lock := w.lock
	w.lock = nil
	return lock.Release()
}

func lockErr(err error) error {
	if errors.Is(err, flock.ErrHeld) {
		return fmt.Errorf("%w: %s", ErrLocked, err)
	}
	return err
}
