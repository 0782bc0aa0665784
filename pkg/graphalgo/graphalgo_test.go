package graphalgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesage/codesage/pkg/graph"
)

// chainStore builds A -> B -> C, a straight line of Calls edges.
func chainStore(t *testing.T) *graph.Store {
	t.Helper()
	store := graph.New(graph.Options{VectorDim: 4})
	a := graph.NodeID{Module: "pkg", Name: "A", Arity: 0}
	b := graph.NodeID{Module: "pkg", Name: "B", Arity: 0}
	c := graph.NodeID{Module: "pkg", Name: "C", Arity: 0}
	require.NoError(t, store.PutNode(graph.KindFunction, a, graph.NodeData{}))
	require.NoError(t, store.PutNode(graph.KindFunction, b, graph.NodeData{}))
	require.NoError(t, store.PutNode(graph.KindFunction, c, graph.NodeData{}))
	ref := func(id graph.NodeID) graph.Ref { return graph.Ref{Kind: graph.KindFunction, ID: id} }
	require.NoError(t, store.PutEdge(ref(a), ref(b), graph.Calls, 0, nil))
	require.NoError(t, store.PutEdge(ref(b), ref(c), graph.Calls, 0, nil))
	return store
}

func refOf(module, name string) graph.Ref {
	return graph.Ref{Kind: graph.KindFunction, ID: graph.NodeID{Module: module, Name: name, Arity: 0}}
}

func TestPageRankConvergesAndIsNonNegative(t *testing.T) {
	snap := FromStore(chainStore(t))
	scores, err := PageRank(context.Background(), snap, PageRankOptions{})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	for _, v := range scores {
		assert.GreaterOrEqual(t, v, 0.0)
	}
	// C receives from B which receives from A: C should outrank A.
	assert.Greater(t, scores[refOf("pkg", "C")], scores[refOf("pkg", "A")])
}

func TestPageRankEmptySnapshot(t *testing.T) {
	snap := FromStore(graph.New(graph.Options{VectorDim: 4}))
	scores, err := PageRank(context.Background(), snap, PageRankOptions{})
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestPageRankHonorsCancelledContext(t *testing.T) {
	snap := FromStore(chainStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PageRank(ctx, snap, PageRankOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDegreeCentralityCountsEdges(t *testing.T) {
	snap := FromStore(chainStore(t))
	deg, err := DegreeCentrality(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, Degree{In: 0, Out: 1, Total: 1}, deg[refOf("pkg", "A")])
	assert.Equal(t, Degree{In: 1, Out: 1, Total: 2}, deg[refOf("pkg", "B")])
	assert.Equal(t, Degree{In: 1, Out: 0, Total: 1}, deg[refOf("pkg", "C")])
}

func TestBetweennessMiddleNodeScoresHighest(t *testing.T) {
	snap := FromStore(chainStore(t))
	scores, err := Betweenness(context.Background(), snap, BetweennessOptions{Normalize: false})
	require.NoError(t, err)
	assert.Greater(t, scores[refOf("pkg", "B")], scores[refOf("pkg", "A")])
	assert.Greater(t, scores[refOf("pkg", "B")], scores[refOf("pkg", "C")])
}

func TestClosenessReflectsReachability(t *testing.T) {
	snap := FromStore(chainStore(t))
	scores, err := Closeness(context.Background(), snap, false)
	require.NoError(t, err)
	// A reaches both B and C, averaging distances 1 and 2: 2/3.
	assert.InDelta(t, 2.0/3.0, scores[refOf("pkg", "A")], 1e-9)
	// C reaches nothing: closeness is 0.
	assert.Equal(t, 0.0, scores[refOf("pkg", "C")])
}

func TestUndirectedProjectionIsSymmetric(t *testing.T) {
	snap := FromStore(chainStore(t))
	undirected := snap.Undirected()
	a, b := refOf("pkg", "A"), refOf("pkg", "B")
	assert.Equal(t, undirected[a][b], undirected[b][a])
}
