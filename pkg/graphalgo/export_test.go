package graphalgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesage/codesage/pkg/graph"
)

func TestExportDOTContainsNodesAndEdges(t *testing.T) {
	snap := FromStore(chainStore(t))
	dot, err := ExportDOT(context.Background(), snap, ExportOptions{})
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph codesage")
	assert.Contains(t, dot, "->")
}

func TestExportDOTGroupsCommunities(t *testing.T) {
	snap := FromStore(chainStore(t))
	communities := map[graph.Ref]int{
		refOf("pkg", "A"): 0,
		refOf("pkg", "B"): 0,
		refOf("pkg", "C"): 1,
	}
	dot, err := ExportDOT(context.Background(), snap, ExportOptions{Community: communities})
	require.NoError(t, err)
	assert.Contains(t, dot, "subgraph cluster_0")
	assert.Contains(t, dot, "subgraph cluster_1")
}

func TestExportDOTColorsFromWhiteToRed(t *testing.T) {
	snap := FromStore(chainStore(t))
	metric := map[graph.Ref]float64{
		refOf("pkg", "A"): 0,
		refOf("pkg", "B"): 0.5,
		refOf("pkg", "C"): 1,
	}
	dot, err := ExportDOT(context.Background(), snap, ExportOptions{Metric: metric})
	require.NoError(t, err)
	// frac=0 (hue 0, sat 0, val 1) renders pure white; frac=1 (hue 0,
	// sat 1, val 1) renders pure red.
	assert.Contains(t, dot, `fillcolor="#ffffff"`)
	assert.Contains(t, dot, `fillcolor="#ff0000"`)
}

func TestExportNodeLinkIncludesMetricAndTruncates(t *testing.T) {
	snap := FromStore(chainStore(t))
	metric, err := PageRank(context.Background(), snap, PageRankOptions{})
	require.NoError(t, err)
	g, err := ExportNodeLink(context.Background(), snap, ExportOptions{Metric: metric, MaxNodes: 2})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	for _, n := range g.Nodes {
		assert.NotNil(t, n.Metric)
	}
}

func TestExportNodeLinkOmitsLinksToTruncatedNodes(t *testing.T) {
	snap := FromStore(chainStore(t))
	g, err := ExportNodeLink(context.Background(), snap, ExportOptions{MaxNodes: 1})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Links)
}
