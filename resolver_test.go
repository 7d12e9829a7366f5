package blobpack

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveClosure(t *testing.T) {
	t.Parallel()

	deps := map[string][]string{
		"a": {"b"},
		"b": {"c"},
	}
	path := buildCatalog(t, deps, "a", "b", "c", "unrelated")

	r, err := Open(Applications, path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"a", "b", "c"}, r.Resolve("a"))
	assert.Equal(t, []string{"c"}, r.Resolve("c"))
}

func TestResolveBreadthFirstOrder(t *testing.T) {
	t.Parallel()

	deps := map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
	}
	path := buildCatalog(t, deps, "a", "b", "c", "d")

	r, err := Open(Applications, path)
	require.NoError(t, err)
	defer r.Close()

	// Frontier order: both direct dependencies before b's own dependency.
	assert.Equal(t, []string{"a", "b", "c", "d"}, r.Resolve("a"))
}

func TestResolveDeduplicates(t *testing.T) {
	t.Parallel()

	deps := map[string][]string{
		"a": {"shared"},
		"b": {"shared"},
	}
	path := buildCatalog(t, deps, "a", "b", "shared")

	r, err := Open(Applications, path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"a", "b", "shared"}, r.Resolve("a", "b"))
	assert.Equal(t, []string{"a", "shared"}, r.Resolve("a", "a"))
}

func TestResolveCycle(t *testing.T) {
	t.Parallel()

	deps := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}
	path := buildCatalog(t, deps, "a", "b")

	r, err := Open(Applications, path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"a", "b"}, r.Resolve("a"))
}

func TestResolveMissingDependencyWarns(t *testing.T) {
	t.Parallel()

	deps := map[string][]string{"a": {"ghost"}}
	path := buildCatalog(t, deps, "a")

	var logBuf bytes.Buffer
	r, err := Open(Applications, path,
		ReaderWithLogger(slog.New(slog.NewTextHandler(&logBuf, nil))))
	require.NoError(t, err)
	defer r.Close()

	// A dangling edge is skipped with a warning, not an error.
	assert.Equal(t, []string{"a"}, r.Resolve("a"))
	assert.Contains(t, logBuf.String(), "ghost")
}

func TestResolveMissingRequestedKey(t *testing.T) {
	t.Parallel()

	path := buildCatalog(t, nil, "a")
	r, err := Open(Applications, path)
	require.NoError(t, err)
	defer r.Close()

	assert.Empty(t, r.Resolve("ghost"))
	assert.Equal(t, []string{"a"}, r.Resolve("ghost", "a"))
}
