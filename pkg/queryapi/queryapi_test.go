package queryapi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesage/codesage/pkg/analyzer"
	"github.com/codesage/codesage/pkg/embedding"
	"github.com/codesage/codesage/pkg/graph"
	"github.com/codesage/codesage/pkg/graphalgo"
	"github.com/codesage/codesage/pkg/ingest"
	"github.com/codesage/codesage/pkg/tracker"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	store := graph.New(graph.Options{VectorDim: 8})
	registry := analyzer.NewRegistry()
	registry.Register(analyzer.NewGoAnalyzer())
	registry.SetFallback(analyzer.NewGenericAnalyzer())

	return New(Deps{
		Store:    store,
		Tracker:  tracker.New(),
		Registry: registry,
		Embedder: embedding.NewDeterministic(8),
		Options:  ingest.Options{Concurrency: 2},
	})
}

const sampleSrc = `package sample

func Hello() string {
	return "hi"
}
`

func TestAnalyzePathsThenStatsAndGetNode(t *testing.T) {
	api := newTestAPI(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(sampleSrc), 0o644))

	report, err := api.AnalyzePaths(context.Background(), []string{dir}, ingest.AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)

	stats := api.Stats()
	assert.Greater(t, stats.Nodes, 0)

	_, ok := api.GetNode(graph.KindFunction, graph.NodeID{Module: "sample", Name: "Hello", Arity: 0})
	assert.True(t, ok)
}

func TestRemovePathRetractsNodes(t *testing.T) {
	api := newTestAPI(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte(sampleSrc), 0o644))

	_, err := api.AnalyzePaths(context.Background(), []string{dir}, ingest.AnalyzeOptions{})
	require.NoError(t, err)

	removed := api.RemovePath(path)
	assert.Greater(t, removed, 0)

	_, ok := api.GetNode(graph.KindFunction, graph.NodeID{Module: "sample", Name: "Hello", Arity: 0})
	assert.False(t, ok)
}

func TestClearEmptiesStore(t *testing.T) {
	api := newTestAPI(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(sampleSrc), 0o644))
	_, err := api.AnalyzePaths(context.Background(), []string{dir}, ingest.AnalyzeOptions{})
	require.NoError(t, err)

	require.NoError(t, api.Clear())
	stats := api.Stats()
	assert.Equal(t, 0, stats.Nodes)
}

func TestSnapshotAndPageRank(t *testing.T) {
	api := newTestAPI(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(sampleSrc), 0o644))
	_, err := api.AnalyzePaths(context.Background(), []string{dir}, ingest.AnalyzeOptions{})
	require.NoError(t, err)

	snap := api.Snapshot()
	scores, err := api.PageRank(context.Background(), snap, graphalgo.PageRankOptions{})
	require.NoError(t, err)
	assert.NotNil(t, scores)
}
