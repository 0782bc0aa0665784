package graphalgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesage/codesage/pkg/graph"
)

// twoClusterStore builds two tight triangles (A,B,C) and (D,E,F) joined
// by a single bridge edge C->D, the classic community-detection fixture.
func twoClusterStore(t *testing.T) *graph.Store {
	t.Helper()
	store := graph.New(graph.Options{VectorDim: 4})
	names := []string{"A", "B", "C", "D", "E", "F"}
	ids := make(map[string]graph.NodeID, len(names))
	for _, n := range names {
		ids[n] = graph.NodeID{Module: "pkg", Name: n}
		require.NoError(t, store.PutNode(graph.KindFunction, ids[n], graph.NodeData{}))
	}
	ref := func(n string) graph.Ref { return graph.Ref{Kind: graph.KindFunction, ID: ids[n]} }
	edge := func(a, b string) {
		require.NoError(t, store.PutEdge(ref(a), ref(b), graph.Calls, 0, nil))
	}
	edge("A", "B")
	edge("B", "C")
	edge("C", "A")
	edge("D", "E")
	edge("E", "F")
	edge("F", "D")
	edge("C", "D")
	return store
}

func seedOf(v int64) *int64 { return &v }

func TestLouvainSeparatesTightClusters(t *testing.T) {
	snap := FromStore(twoClusterStore(t))
	communities, err := Louvain(context.Background(), snap, LouvainOptions{})
	require.NoError(t, err)
	require.Len(t, communities, 6)

	a, b, c := refOf("pkg", "A"), refOf("pkg", "B"), refOf("pkg", "C")
	d, e, f := refOf("pkg", "D"), refOf("pkg", "E"), refOf("pkg", "F")

	assert.Equal(t, communities[a], communities[b])
	assert.Equal(t, communities[b], communities[c])
	assert.Equal(t, communities[d], communities[e])
	assert.Equal(t, communities[e], communities[f])
	assert.NotEqual(t, communities[a], communities[d])
}

func TestLabelPropagationIsDeterministicWithSeed(t *testing.T) {
	snap := FromStore(twoClusterStore(t))
	first, err := LabelPropagation(context.Background(), snap, LabelPropagationOptions{Seed: seedOf(42)})
	require.NoError(t, err)
	second, err := LabelPropagation(context.Background(), snap, LabelPropagationOptions{Seed: seedOf(42)})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLabelPropagationGroupsConnectedNodes(t *testing.T) {
	snap := FromStore(twoClusterStore(t))
	communities, err := LabelPropagation(context.Background(), snap, LabelPropagationOptions{Seed: seedOf(7)})
	require.NoError(t, err)

	a, b, c := refOf("pkg", "A"), refOf("pkg", "B"), refOf("pkg", "C")
	assert.Equal(t, communities[a], communities[b])
	assert.Equal(t, communities[b], communities[c])
}
