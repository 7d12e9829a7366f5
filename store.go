package blobpack

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// UpdateMode selects how Store.Update replaces an existing record.
type UpdateMode string

const (
	// UpdateReplace replaces the record wholesale. The revision counter
	// restarts at 1.
	UpdateReplace UpdateMode = "replace"

	// UpdateMerge performs the same wholesale replace but carries the
	// revision counter forward, incremented by one. Despite the name there
	// is no content-level merge between old and new data; the mode is
	// replace-with-revision-bump.
	UpdateMerge UpdateMode = "merge"
)

// Store manages a mutable user-data container: add, update, and remove
// records against an in-memory index, with deferred whole-file rewrite
// semantics. Nothing reaches disk until Save.
//
// Removal and replacement are index operations only: superseded payload
// bytes stay in the container, orphaned, until it is rebuilt from
// original sources. A Store cannot compact on its own because source
// paths are not retained after packing.
type Store struct {
	w *Writer[*UserRecord]
}

// CreateStore creates a Store for a new user-data container at path.
func CreateStore(path string, opts ...WriterOption) (*Store, error) {
	w, err := NewWriter(UserData, path, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{w: w}, nil
}

// OpenStore loads an existing user-data container at path for mutation.
func OpenStore(path string, opts ...WriterOption) (*Store, error) {
	w, err := OpenWriter(UserData, path, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{w: w}, nil
}

// Add inserts a new record packed from sourceDir. It fails with
// ErrDuplicateKey if the key is already present; existing records must go
// through Update.
func (s *Store) Add(ctx context.Context, rec *UserRecord, sourceDir string) error {
	return s.w.Add(ctx, rec, sourceDir)
}

// Update replaces the record for key with fresh payload bytes packed from
// sourceDir, appended at the current end of the payload arena. It fails
// with ErrNotFound if the key is absent; new records must go through Add.
//
// UpdateReplace starts the record over (revision 1); UpdateMerge bumps
// the previous revision by one. Both modes replace content wholesale.
func (s *Store) Update(ctx context.Context, key, sourceDir string, mode UpdateMode) error {
	old, ok := s.w.Record(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	rec := &UserRecord{EntryBase: EntryBase{Key: key}}
	switch mode {
	case UpdateReplace:
	case UpdateMerge:
		rec.Revision = old.Revision + 1
	default:
		return fmt.Errorf("blobpack: unknown update mode %q", mode)
	}

	// Old payload bytes become orphaned; the index entry is what changes.
	s.w.idx.delete(key)
	if err := s.w.Add(ctx, rec, sourceDir); err != nil {
		// Re-adding failed; restore the previous record so the store is
		// unchanged rather than missing the key.
		s.w.idx.put(old)
		return err
	}
	return nil
}

// Remove deletes key from the index. Its payload bytes remain in the
// container until a rebuild; see the Store doc comment.
func (s *Store) Remove(key string) error {
	return s.w.Remove(key)
}

// Save serializes the container to disk (see Writer.Build).
func (s *Store) Save() error {
	return s.w.Build()
}

// Checkpoint copies the current on-disk container file to destPath,
// byte for byte. Pending in-memory edits are not included: a checkpoint
// taken before Save captures the previously persisted state.
func (s *Store) Checkpoint(destPath string) error {
	src, err := os.Open(s.w.path)
	if err != nil {
		return fmt.Errorf("open container for checkpoint: %w", err)
	}
	defer src.Close()

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".blobpack-ckpt-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Record returns the record for key, if present.
func (s *Store) Record(key string) (*UserRecord, bool) { return s.w.Record(key) }

// Keys returns all record keys in index order.
func (s *Store) Keys() []string { return s.w.Keys() }

// Len returns the number of records.
func (s *Store) Len() int { return s.w.Len() }

// PayloadSize returns the size of the in-memory payload arena, including
// any orphaned bytes.
func (s *Store) PayloadSize() uint64 { return s.w.PayloadSize() }

// Path returns the container path this store writes to.
func (s *Store) Path() string { return s.w.path }

// Close releases the store's exclusive lock without saving.
func (s *Store) Close() error { return s.w.Close() }
