package ingest

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
	"github.com/codesage/codesage/pkg/tracker"
)

func newTestPipeline(t *testing.T) (*Pipeline, *graph.Store) {
	t.Helper()
	store := graph.New(graph.Options{VectorDim: 8})
	reg := analyzer.NewRegistry()
	reg.Register(analyzer.NewGoAnalyzer())
	reg.SetFallback(analyzer.NewGenericAnalyzer())
	pipe := New(store, tracker.New(), reg, embedding.NewDeterministic(8), nil, nil, Options{})
	return pipe, store
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleSrc = `package demo

// Hello greets.
func Hello() string {
	return "hi"
}
`

func TestAnalyzePathsIngestsGoFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "demo.go", sampleSrc)

	pipe, store := newTestPipeline(t)
	report, err := pipe.AnalyzePaths(context.Background(), []string{dir}, AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)
	assert.Equal(t, 0, report.Errors)

	stats := store.Stats()
	assert.Positive(t, stats.Nodes)
	assert.Positive(t, stats.Embeddings)
}

func TestAnalyzePathsIncrementalSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "demo.go", sampleSrc)

	pipe, _ := newTestPipeline(t)
	_, err := pipe.AnalyzePaths(context.Background(), []string{dir}, AnalyzeOptions{Incremental: true})
	require.NoError(t, err)

	report, err := pipe.AnalyzePaths(context.Background(), []string{dir}, AnalyzeOptions{Incremental: true})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Success)
	assert.Equal(t, 1, report.Skipped)
}

func TestAnalyzePathsExcludesDotfilesAndPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.go", sampleSrc)
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	writeFile(t, dir, ".git/ignored.go", sampleSrc)
	writeFile(t, dir, "skip_test.go", sampleSrc)

	pipe, _ := newTestPipeline(t)
	report, err := pipe.AnalyzePaths(context.Background(), []string{dir}, AnalyzeOptions{ExcludePatterns: []string{"*_test.go"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)
}

func TestDiscoverHonorsMaxDepth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))
	writeFile(t, dir, "top.go", sampleSrc)
	writeFile(t, dir, "a/mid.go", sampleSrc)
	writeFile(t, dir, "a/b/deep.go", sampleSrc)

	files, err := discover([]string{dir}, 1, nil)
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.path))
	}
	assert.Contains(t, names, "top.go")
	assert.Contains(t, names, "mid.go")
	assert.NotContains(t, names, "deep.go")
}
