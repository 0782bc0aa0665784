package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutNodeIdempotent(t *testing.T) {
	s := New(Options{VectorDim: 2})

	id := NodeID{Module: "A", Name: "f", Arity: 1}
	require.NoError(t, s.PutNode(KindFunction, id, NodeData{File: "a.go", Line: 1}))
	require.NoError(t, s.PutNode(KindFunction, id, NodeData{File: "a.go", Line: 1}))
	assert.Equal(t, 1, s.Stats().Nodes)

	require.NoError(t, s.PutNode(KindFunction, id, NodeData{File: "a.go", Line: 99}))
	data, ok := s.GetNode(KindFunction, id)
	require.True(t, ok)
	assert.Equal(t, 99, data.Line)
	assert.Equal(t, 1, s.Stats().Nodes)
}

func TestRemoveNodeAtomicRemoval(t *testing.T) {
	s := New(Options{VectorDim: 2})

	a := Ref{Kind: KindModule, ID: NodeID{Module: "A"}}
	f := Ref{Kind: KindFunction, ID: NodeID{Module: "A", Name: "f", Arity: 1}}
	g := Ref{Kind: KindFunction, ID: NodeID{Module: "B", Name: "g", Arity: 2}}

	require.NoError(t, s.PutNode(a.Kind, a.ID, NodeData{}))
	require.NoError(t, s.PutNode(f.Kind, f.ID, NodeData{}))
	require.NoError(t, s.PutEdge(a, f, Defines, 0, nil))
	require.NoError(t, s.PutEdge(f, g, Calls, 0, nil))
	require.NoError(t, s.PutEmbedding(f.Kind, f.ID, []float32{1, 0}, "alpha"))

	require.NoError(t, s.RemoveNode(f.Kind, f.ID))

	assert.Empty(t, s.Outgoing(f, nil))
	assert.Empty(t, s.Incoming(f, nil))
	_, ok := s.GetEmbedding(f.Kind, f.ID)
	assert.False(t, ok)

	// The edge from a to f must be gone too (f was an endpoint).
	assert.Empty(t, s.Outgoing(a, nil))
}

func TestPutEdgeFlattenedRemoval(t *testing.T) {
	s := New(Options{VectorDim: 2})

	f := Ref{Kind: KindFunction, ID: NodeID{Module: "A", Name: "f", Arity: 1}}
	g := Ref{Kind: KindFunction, ID: NodeID{Module: "B", Name: "g", Arity: 2}}
	h := Ref{Kind: KindFunction, ID: NodeID{Module: "C", Name: "h", Arity: 0}}

	require.NoError(t, s.PutEdge(f, g, Calls, 0, nil))
	require.NoError(t, s.PutEdge(h, g, Calls, 0, nil))

	require.NoError(t, s.RemoveNode(f.Kind, f.ID))

	// Only the f->g edge should be gone; h->g survives untouched.
	incoming := s.Incoming(g, nil)
	require.Len(t, incoming, 1)
	assert.Equal(t, h, incoming[0].From)
	assert.Len(t, s.Outgoing(h, nil), 1)
}

func TestPutEmbeddingDimensionMismatch(t *testing.T) {
	s := New(Options{VectorDim: 3})
	f := NodeID{Module: "A", Name: "f", Arity: 1}
	err := s.PutEmbedding(KindFunction, f, []float32{1, 0}, "x")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEdgeWeightDefault(t *testing.T) {
	s := New(Options{})
	a := Ref{Kind: KindModule, ID: NodeID{Module: "A"}}
	b := Ref{Kind: KindModule, ID: NodeID{Module: "B"}}
	require.NoError(t, s.PutEdge(a, b, Imports, 0, nil))
	w, ok := s.EdgeWeight(a, b, Imports)
	require.True(t, ok)
	assert.Equal(t, 1.0, w)
}

func TestClearRemovesEverything(t *testing.T) {
	s := New(Options{VectorDim: 2})
	a := Ref{Kind: KindModule, ID: NodeID{Module: "A"}}
	require.NoError(t, s.PutNode(a.Kind, a.ID, NodeData{}))
	require.NoError(t, s.PutEmbedding(a.Kind, a.ID, []float32{1, 0}, "x"))
	require.NoError(t, s.Clear())
	stats := s.Stats()
	assert.Zero(t, stats.Nodes)
	assert.Zero(t, stats.Edges)
	assert.Zero(t, stats.Embeddings)
}

func TestFindFunctionAnyArity(t *testing.T) {
	s := New(Options{})
	id := NodeID{Module: "A", Name: "f", Arity: 2}
	require.NoError(t, s.PutNode(KindFunction, id, NodeData{Line: 5}))
	got, data, ok := s.FindFunction("A", "f")
	require.True(t, ok)
	assert.Equal(t, id, got)
	assert.Equal(t, 5, data.Line)
}
