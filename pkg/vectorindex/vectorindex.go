// Package vectorindex implements VectorIndex (spec §4.G): brute-force
// cosine-similarity search over the embeddings held in a graph.Store.
//
// Grounded on the teacher's pkg/search/vector_index.go: same
// top-k-with-threshold search shape, without a lock of its own (the store
// already guards its own embedding table), retargeted to read
// directly from graph.Store.ListEmbeddings instead of maintaining a
// second copy of every vector.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/codesage/codesage/pkg/graph"
)

// ErrDimensionMismatch names a query/embedding length mismatch. Search and
// KNN do not return it: they skip stored entries whose length differs from
// the query.
var ErrDimensionMismatch = errors.New("vectorindex: dimension mismatch")

// Hit is one ranked search result.
type Hit struct {
	Kind  graph.Kind
	ID    graph.NodeID
	Score float64
	Text  string
}

// Index is a thin cosine-similarity search layer over a graph.Store's
// embedding table. It holds no vector state of its own: every Search call
// reads a fresh snapshot via ListEmbeddings, so it is always consistent
// with the store's most recent writes.
type Index struct {
	store *graph.Store
}

// New wraps store for vector search.
func New(store *graph.Store) *Index {
	return &Index{store: store}
}

// Options configures Search.
type Options struct {
	Limit      int
	Threshold  float64
	KindFilter *graph.Kind
}

// Search ranks stored embeddings against query by cosine similarity,
// dropping entries below Threshold and keeping the top Limit, ties broken
// by ascending (kind, module, name, arity) — a stable, deterministic order
// independent of map iteration (spec §4.G: "stable insertion order; id
// lexicographic").
func (idx *Index) Search(ctx context.Context, query []float32, opts Options) ([]Hit, error) {
	entries := idx.store.ListEmbeddings(opts.KindFilter, 0)

	var hits []Hit
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if len(e.Vector) != len(query) {
			continue
		}
		score := CosineSimilarity(query, e.Vector)
		if score < opts.Threshold {
			continue
		}
		hits = append(hits, Hit{Kind: e.Kind, ID: e.ID, Score: score, Text: e.Text})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return idKey(hits[i]) < idKey(hits[j])
	})

	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

// idKey orders ties by ascending (kind, module, name, arity), matching
// Search's documented contract.
func idKey(h Hit) string {
	return fmt.Sprintf("%d#%s#%s#%d", h.Kind, h.ID.Module, h.ID.Name, h.ID.Arity)
}

// KNN returns the k nearest stored embeddings to query, with no
// similarity floor (spec §4.G: knn = search with threshold = -inf).
func (idx *Index) KNN(ctx context.Context, query []float32, k int) ([]Hit, error) {
	return idx.Search(ctx, query, Options{Limit: k, Threshold: -1})
}

// CosineSimilarity computes Σ a_i·b_i / (‖a‖·‖b‖), returning 0 if either
// vector is the zero vector (spec §4.G degenerate case).
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
