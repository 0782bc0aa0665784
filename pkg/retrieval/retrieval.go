// Package retrieval implements HybridRetriever (spec §4.H): three
// strategies (semantic-first, graph-first, fusion) for turning query text
// into ranked graph nodes.
//
// The fusion strategy's Reciprocal Rank Fusion is grounded on
// pkg/search/search.go's fuseRRF: the same `score = Σ weight/(k+rank)`
// formula and "prefer the earliest observation" dedup rule, generalized
// from two fixed sources (vector + BM25) to the two HybridRetriever
// strategies (semantic, graph), with weight fixed at 1.0 per source.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/codesage/codesage/pkg/embedding"
	"github.com/codesage/codesage/pkg/graph"
	"github.com/codesage/codesage/pkg/vectorindex"
)

// Errors returned by retrieval strategies (spec §7).
var (
	ErrEmbeddingUnavailable = errors.New("retrieval: embedding provider unavailable")
	ErrNoResults            = errors.New("retrieval: no results above threshold")
)

// Filter is the open key/value graph filter predicate of spec §4.H. The
// special key "module" matches a function hit's owning module; every
// other key is matched against the stored NodeData.Metadata map.
type Filter map[string]any

// matches reports whether data satisfies f, given the node's owning
// module (functions: NodeID.Module; other kinds: NodeID.Module is itself
// the qualified name).
func (f Filter) matches(module string, data graph.NodeData) bool {
	for k, want := range f {
		if k == "module" {
			if toString(want) != module {
				return false
			}
			continue
		}
		got, ok := data.Metadata[k]
		if !ok || toString(got) != toString(want) {
			return false
		}
	}
	return true
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Hit is one ranked retrieval result. FusedScore is only populated by
// Fusion.
type Hit struct {
	Kind       graph.Kind
	ID         graph.NodeID
	Score      float64
	FusedScore float64
	Text       string
}

// Options configures a retrieval call.
type Options struct {
	Limit      int
	Threshold  float64
	Filter     Filter
	RRFConstant float64 // Fusion only; 0 means the spec default of 60.
}

// Retriever implements the three HybridRetriever strategies over a
// graph.Store and an embedding.Provider.
type Retriever struct {
	store    *graph.Store
	index    *vectorindex.Index
	embedder embedding.Provider
}

// New builds a Retriever.
func New(store *graph.Store, embedder embedding.Provider) *Retriever {
	return &Retriever{store: store, index: vectorindex.New(store), embedder: embedder}
}

// hitKey identifies a Hit by its full node identity (kind, module, name,
// arity) so that, e.g., two overloads sharing a module and name but
// differing in arity are never merged during Fusion's dedup.
func hitKey(h Hit) string {
	return fmt.Sprintf("%d#%s#%s#%d", h.Kind, h.ID.Module, h.ID.Name, h.ID.Arity)
}

// SemanticFirst embeds query, searches the vector index for 2*Limit
// candidates, and post-filters by the graph predicate before taking the
// top Limit (spec §4.H).
func (r *Retriever) SemanticFirst(ctx context.Context, query string, opts Options) ([]Hit, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, ErrEmbeddingUnavailable
	}

	hits, err := r.index.Search(ctx, vec, vectorindex.Options{Limit: 2 * opts.Limit, Threshold: opts.Threshold})
	if err != nil {
		return nil, err
	}

	var out []Hit
	for _, h := range hits {
		data, ok := r.store.GetNode(h.Kind, h.ID)
		if !ok || !opts.Filter.matches(h.ID.Module, data) {
			continue
		}
		out = append(out, Hit{Kind: h.Kind, ID: h.ID, Score: h.Score, Text: h.Text})
		if len(out) >= opts.Limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNoResults
	}
	return out, nil
}

const graphFirstCandidateCap = 1000

// GraphFirst enumerates candidates from the store (capped at 1000),
// drops ones with no stored embedding, scores the rest against embed(query),
// and keeps those at or above Threshold (spec §4.H).
func (r *Retriever) GraphFirst(ctx context.Context, query string, opts Options) ([]Hit, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, ErrEmbeddingUnavailable
	}

	var kindFilter *graph.Kind
	if mv, ok := opts.Filter["kind"]; ok {
		if k, ok2 := mv.(graph.Kind); ok2 {
			kindFilter = &k
		}
	}

	candidates := r.store.ListNodes(kindFilter, graphFirstCandidateCap)

	var out []Hit
	for _, n := range candidates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if !opts.Filter.matches(n.ID.Module, n.Data) {
			continue
		}
		emb, ok := r.store.GetEmbedding(n.Kind, n.ID)
		if !ok {
			continue
		}
		score := vectorindex.CosineSimilarity(vec, emb.Vector)
		if score < opts.Threshold {
			continue
		}
		out = append(out, Hit{Kind: n.Kind, ID: n.ID, Score: score, Text: emb.Text})
		if len(out) >= graphFirstCandidateCap {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return hitKey(out[i]) < hitKey(out[j])
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if len(out) == 0 {
		return nil, ErrNoResults
	}
	return out, nil
}

// Fusion runs SemanticFirst and GraphFirst independently and combines
// them with Reciprocal Rank Fusion, k defaulting to 60.
func (r *Retriever) Fusion(ctx context.Context, query string, opts Options) ([]Hit, error) {
	k := opts.RRFConstant
	if k == 0 {
		k = 60
	}

	semantic, semErr := r.SemanticFirst(ctx, query, opts)
	if semErr != nil && !errors.Is(semErr, ErrNoResults) {
		return nil, semErr
	}
	graphHits, graphErr := r.GraphFirst(ctx, query, opts)
	if graphErr != nil && !errors.Is(graphErr, ErrNoResults) {
		return nil, graphErr
	}

	type accum struct {
		hit   Hit
		score float64
	}
	byKey := make(map[string]*accum)
	var order []string

	add := func(hits []Hit) {
		for rank, h := range hits {
			key := hitKey(h)
			a, ok := byKey[key]
			if !ok {
				a = &accum{hit: h}
				byKey[key] = a
				order = append(order, key)
			}
			a.score += 1.0 / (k + float64(rank+1))
		}
	}
	add(semantic)
	add(graphHits)

	out := make([]Hit, 0, len(order))
	for _, key := range order {
		a := byKey[key]
		hit := a.hit
		hit.FusedScore = a.score
		out = append(out, hit)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return hitKey(out[i]) < hitKey(out[j])
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if len(out) == 0 {
		return nil, ErrNoResults
	}
	return out, nil
}
