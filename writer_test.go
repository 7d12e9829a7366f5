package blobpack

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

// addApp packs a small source tree under a derived path and adds it as key.
func addApp(t *testing.T, w *Writer[*ApplicationEntry], key string, deps ...string) {
	t.Helper()
	src := t.TempDir()
	createTestFiles(t, src, map[string]string{
		"main.txt": "content of " + key,
	})
	rec := &ApplicationEntry{
		EntryBase: EntryBase{Key: key, Version: "1.0.0", Dependencies: deps},
		Name:      key,
	}
	require.NoError(t, w.Add(context.Background(), rec, src))
}

func TestWriterBuildAndOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "apps.blob")
	w, err := NewWriter(Applications, path)
	require.NoError(t, err)

	src := t.TempDir()
	createTestFiles(t, src, map[string]string{
		"index.html":     "<html></html>",
		"static/app.css": "body {}",
	})
	rec := &ApplicationEntry{
		EntryBase: EntryBase{Key: "webserver", Version: "2.1.0", Description: "web server"},
		Name:      "Web Server",
	}
	require.NoError(t, w.Add(context.Background(), rec, src))
	addApp(t, w, "api-gateway")

	require.NoError(t, w.Build())
	require.NoError(t, w.Close())

	r, err := Open(Applications, path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"webserver", "api-gateway"}, r.Keys())

	got, ok := r.Record("webserver")
	require.True(t, ok)
	assert.Equal(t, "Web Server", got.Name)
	assert.Equal(t, "2.1.0", got.Version)
	assert.NotZero(t, got.Size)
	assert.NotZero(t, got.CompressedSize)
	assert.Len(t, got.Checksum, 64)
	assert.False(t, got.CreatedAt.IsZero())

	paths := make([]string, len(got.Files))
	for i, f := range got.Files {
		paths[i] = f.Path
	}
	assert.ElementsMatch(t, []string{"index.html", "static/app.css"}, paths)
}

func TestWriterChecksumIsUncompressedDigest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "apps.blob")
	w, err := NewWriter(Applications, path)
	require.NoError(t, err)
	defer w.Close()

	addApp(t, w, "app")
	rec, ok := w.Record("app")
	require.True(t, ok)

	require.NoError(t, w.Build())

	r, err := openAfterClose(t, w, path)
	require.NoError(t, err)
	defer r.Close()

	tarData, err := r.ExtractBytes("app")
	require.NoError(t, err)
	assert.Equal(t, digest.SHA256.FromBytes(tarData).Encoded(), rec.Checksum)
	assert.Equal(t, uint64(len(tarData)), rec.Size)
}

// openAfterClose releases w's exclusive lock and opens a Reader on path.
func openAfterClose(t *testing.T, w *Writer[*ApplicationEntry], path string) (*Reader[*ApplicationEntry], error) {
	t.Helper()
	require.NoError(t, w.Close())
	return Open(Applications, path)
}

func TestWriterAddDuplicateKey(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(Applications, filepath.Join(t.TempDir(), "apps.blob"))
	require.NoError(t, err)
	defer w.Close()

	addApp(t, w, "app")

	src := t.TempDir()
	createTestFiles(t, src, map[string]string{"x.txt": "x"})
	err = w.Add(context.Background(), &ApplicationEntry{EntryBase: EntryBase{Key: "app"}}, src)
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 1, w.Len())
}

func TestWriterAddEmptyKey(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(Applications, filepath.Join(t.TempDir(), "apps.blob"))
	require.NoError(t, err)
	defer w.Close()

	err = w.Add(context.Background(), &ApplicationEntry{}, t.TempDir())
	require.Error(t, err)
}

func TestWriterAddMissingSource(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(Applications, filepath.Join(t.TempDir(), "apps.blob"))
	require.NoError(t, err)
	defer w.Close()

	rec := &ApplicationEntry{EntryBase: EntryBase{Key: "app"}}
	err = w.Add(context.Background(), rec, filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrSourceNotFound)
}

func TestWriterAddCanceledContext(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(Applications, filepath.Join(t.TempDir(), "apps.blob"))
	require.NoError(t, err)
	defer w.Close()

	src := t.TempDir()
	createTestFiles(t, src, map[string]string{"a.txt": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &ApplicationEntry{EntryBase: EntryBase{Key: "app"}}
	err = w.Add(ctx, rec, src)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriterRemove(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(Applications, filepath.Join(t.TempDir(), "apps.blob"))
	require.NoError(t, err)
	defer w.Close()

	addApp(t, w, "a")
	addApp(t, w, "b")
	payloadBefore := w.PayloadSize()

	require.NoError(t, w.Remove("a"))
	assert.Equal(t, []string{"b"}, w.Keys())
	// Removal is an index operation; payload bytes stay put.
	assert.Equal(t, payloadBefore, w.PayloadSize())

	require.ErrorIs(t, w.Remove("a"), ErrNotFound)
}

func TestOpenWriterAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "apps.blob")
	w, err := NewWriter(Applications, path)
	require.NoError(t, err)
	addApp(t, w, "first")
	require.NoError(t, w.Build())
	require.NoError(t, w.Close())

	w2, err := OpenWriter(Applications, path)
	require.NoError(t, err)
	assert.Equal(t, 1, w2.Len())
	addApp(t, w2, "second")
	require.NoError(t, w2.Build())
	require.NoError(t, w2.Close())

	r, err := Open(Applications, path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"first", "second"}, r.Keys())
	dest := t.TempDir()
	require.NoError(t, r.Extract("first", dest))
	require.NoError(t, r.Extract("second", dest))

	got, err := os.ReadFile(filepath.Join(dest, "first", "main.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content of first", string(got))
}

func TestOpenWriterWrongKind(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "apps.blob")
	w, err := NewWriter(Applications, path)
	require.NoError(t, err)
	require.NoError(t, w.Build())
	require.NoError(t, w.Close())

	_, err = OpenWriter(Binaries, path)
	require.ErrorIs(t, err, ErrFormat)
}

func TestWriterLockExcludesSecondWriter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "apps.blob")
	w, err := NewWriter(Applications, path)
	require.NoError(t, err)

	_, err = NewWriter(Applications, path)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, w.Close())
	w2, err := NewWriter(Applications, path)
	require.NoError(t, err)
	require.NoError(t, w2.Close())
}

func TestWriterBuildOverwritesAtomically(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "apps.blob")
	w, err := NewWriter(Applications, path)
	require.NoError(t, err)
	addApp(t, w, "a")
	require.NoError(t, w.Build())
	addApp(t, w, "b")
	require.NoError(t, w.Build())
	require.NoError(t, w.Close())

	r, err := Open(Applications, path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"a", "b"}, r.Keys())

	// No temp residue next to the container.
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".blobpack-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestWriterClock(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w, err := NewWriter(Applications, filepath.Join(t.TempDir(), "apps.blob"),
		writerWithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	defer w.Close()

	addApp(t, w, "app")
	rec, ok := w.Record("app")
	require.True(t, ok)
	assert.True(t, rec.CreatedAt.Equal(fixed))
}

func TestBinaryEntryClassification(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	createTestFiles(t, src, map[string]string{
		"lib/libfoo.so":     "elf",
		"lib/libbar.so.1.2": "elf",
		"docs/readme.md":    "docs",
	})
	toolPath := filepath.Join(src, "bin", "tool")
	require.NoError(t, os.MkdirAll(filepath.Dir(toolPath), 0o755))
	require.NoError(t, os.WriteFile(toolPath, []byte("#!/bin/sh\n"), 0o755))

	w, err := NewWriter(Binaries, filepath.Join(t.TempDir(), "bins.blob"))
	require.NoError(t, err)
	defer w.Close()

	rec := &BinaryEntry{
		EntryBase: EntryBase{Key: "toolkit"},
		Provides:  []string{"tool"},
	}
	require.NoError(t, w.Add(context.Background(), rec, src))

	assert.Equal(t, []string{"bin/tool"}, rec.Executables)
	assert.ElementsMatch(t, []string{"lib/libfoo.so", "lib/libbar.so.1.2"}, rec.Libraries)
}
