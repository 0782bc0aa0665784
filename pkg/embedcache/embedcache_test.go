package embedcache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesage/codesage/pkg/graph"
)

func TestSaveThenLoadRoundTrips(t *testing.T) {
	c, err := Open("proj1", "deterministic-sha256:4", 4, Options{})
	require.NoError(t, err)
	defer c.Close()

	vec := []float32{0.1, 0.2, 0.3, 0.4}
	require.NoError(t, c.Save(graph.KindFunction, "hash1", vec))

	got, found, err := c.Load(graph.KindFunction, "hash1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, vec, got)
}

func TestLoadMissIsNotError(t *testing.T) {
	c, err := Open("proj1", "m", 4, Options{})
	require.NoError(t, err)
	defer c.Close()

	_, found, err := c.Load(graph.KindFunction, "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClosedCacheRejectsOperations(t *testing.T) {
	c, err := Open("proj1", "m", 4, Options{})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, _, err = c.Load(graph.KindFunction, "h")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Save(graph.KindFunction, "h", nil), ErrClosed)
}

func TestManifestReturnsOpenedKey(t *testing.T) {
	c, err := Open("proj1", "model-x", 8, Options{})
	require.NoError(t, err)
	defer c.Close()
	m := c.Manifest()
	assert.Equal(t, "proj1", m.ProjectKey)
	assert.Equal(t, "model-x", m.ModelIdentity)
	assert.Equal(t, 8, m.Dimension)
}

func TestOpenRejectsIncompatibleModelOrDimension(t *testing.T) {
	dir := t.TempDir()

	c1, err := Open("proj1", "deterministic-sha256:4", 4, Options{Dir: dir})
	require.NoError(t, err)
	vec := []float32{0.1, 0.2, 0.3, 0.4}
	require.NoError(t, c1.Save(graph.KindFunction, "hash1", vec))
	require.NoError(t, c1.Close())

	c2, err := Open("proj1", "deterministic-sha256:8", 8, Options{Dir: dir})
	assert.Nil(t, c2)
	assert.True(t, errors.Is(err, ErrIncompatible))

	c3, err := Open("proj1", "deterministic-sha256:4", 4, Options{Dir: dir})
	require.NoError(t, err)
	defer c3.Close()
	_, found, err := c3.Load(graph.KindFunction, "hash1")
	require.NoError(t, err)
	assert.True(t, found)
}
