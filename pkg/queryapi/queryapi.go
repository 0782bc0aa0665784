// Package queryapi implements QueryAPI (spec §4.J): a single facade type
// wrapping every read-side subsystem (GraphStore, VectorIndex,
// HybridRetriever, GraphAlgorithms) plus the ingestion pipeline's write
// entry points, so a caller holds exactly one handle, matching
// pkg/nornicdb/db.go's role as "the one type every external caller holds".
//
// Every method takes and returns plain values — node IDs, strings,
// float64s, plain structs — never a source-language-specific handle, so a
// transport layer built on top (out of scope here, per spec §1/§6) can
// marshal requests and responses directly.
package queryapi

import (
	"context"

	"github.com/codesage/codesage/pkg/analyzer"
	"github.com/codesage/codesage/pkg/embedcache"
	"github.com/codesage/codesage/pkg/embedding"
	"github.com/codesage/codesage/pkg/graph"
	"github.com/codesage/codesage/pkg/graphalgo"
	"github.com/codesage/codesage/pkg/ingest"
	"github.com/codesage/codesage/pkg/notify"
	"github.com/codesage/codesage/pkg/retrieval"
	"github.com/codesage/codesage/pkg/tracker"
	"github.com/codesage/codesage/pkg/vectorindex"
)

// API is the facade every caller of this module holds.
type API struct {
	store     *graph.Store
	pipeline  *ingest.Pipeline
	index     *vectorindex.Index
	retriever *retrieval.Retriever
	cache     *embedcache.Cache
}

// Deps bundles API's collaborators. Cache may be nil (caching disabled).
type Deps struct {
	Store    *graph.Store
	Tracker  *tracker.Tracker
	Registry *analyzer.Registry
	Embedder embedding.Provider
	Cache    *embedcache.Cache
	Notify   notify.Sink
	Options  ingest.Options
}

// New builds an API over the given store and collaborators.
func New(deps Deps) *API {
	pipeline := ingest.New(deps.Store, deps.Tracker, deps.Registry, deps.Embedder, deps.Cache, deps.Notify, deps.Options)
	return &API{
		store:     deps.Store,
		pipeline:  pipeline,
		index:     vectorindex.New(deps.Store),
		retriever: retrieval.New(deps.Store, deps.Embedder),
		cache:     deps.Cache,
	}
}

// AnalyzePaths ingests the given file or directory paths (spec §4.F).
func (a *API) AnalyzePaths(ctx context.Context, paths []string, opts ingest.AnalyzeOptions) (*ingest.BatchReport, error) {
	return a.pipeline.AnalyzePaths(ctx, paths, opts)
}

// RemovePath retracts every node the tracker last associated with path and
// clears its entry, so a subsequent AnalyzePaths treats it as New.
func (a *API) RemovePath(path string) int {
	nodes := a.pipeline.Tracker.Drop(path)
	for _, ref := range nodes {
		_ = a.store.RemoveNode(ref.Kind, ref.ID)
	}
	return len(nodes)
}

// Clear empties the graph store entirely (all nodes, edges, embeddings).
func (a *API) Clear() error {
	return a.store.Clear()
}

// GetNode returns one node's data, spec §4.A's point-read contract.
func (a *API) GetNode(kind graph.Kind, id graph.NodeID) (graph.NodeData, bool) {
	return a.store.GetNode(kind, id)
}

// ListNodes returns nodes optionally filtered by kind, up to limit (0 means
// unlimited).
func (a *API) ListNodes(kindFilter *graph.Kind, limit int) []graph.Node {
	return a.store.ListNodes(kindFilter, limit)
}

// Stats reports the current node/edge/embedding counts.
func (a *API) Stats() graph.Stats {
	return a.store.Stats()
}

// SemanticSearch runs the vector index directly over query's embedding.
func (a *API) SemanticSearch(ctx context.Context, queryVector []float32, opts vectorindex.Options) ([]vectorindex.Hit, error) {
	return a.index.Search(ctx, queryVector, opts)
}

// SemanticFirst, GraphFirst, and Fusion expose the three HybridRetriever
// strategies (spec §4.H).
func (a *API) SemanticFirst(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Hit, error) {
	return a.retriever.SemanticFirst(ctx, query, opts)
}

func (a *API) GraphFirst(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Hit, error) {
	return a.retriever.GraphFirst(ctx, query, opts)
}

func (a *API) Fusion(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Hit, error) {
	return a.retriever.Fusion(ctx, query, opts)
}

// Snapshot copies out the current Calls-edge subgraph for use with every
// GraphAlgorithms call below (spec §4.I / §5 read-isolation).
func (a *API) Snapshot() *graphalgo.Snapshot {
	return graphalgo.FromStore(a.store)
}

func (a *API) PageRank(ctx context.Context, snap *graphalgo.Snapshot, opts graphalgo.PageRankOptions) (map[graph.Ref]float64, error) {
	return graphalgo.PageRank(ctx, snap, opts)
}

func (a *API) DegreeCentrality(ctx context.Context, snap *graphalgo.Snapshot) (map[graph.Ref]graphalgo.Degree, error) {
	return graphalgo.DegreeCentrality(ctx, snap)
}

func (a *API) Betweenness(ctx context.Context, snap *graphalgo.Snapshot, opts graphalgo.BetweennessOptions) (map[graph.Ref]float64, error) {
	return graphalgo.Betweenness(ctx, snap, opts)
}

func (a *API) Closeness(ctx context.Context, snap *graphalgo.Snapshot, normalize bool) (map[graph.Ref]float64, error) {
	return graphalgo.Closeness(ctx, snap, normalize)
}

func (a *API) FindPaths(ctx context.Context, snap *graphalgo.Snapshot, src, dst graph.Ref, opts graphalgo.PathOptions) ([]graphalgo.Path, error) {
	return graphalgo.FindPaths(ctx, snap, src, dst, opts)
}

func (a *API) Louvain(ctx context.Context, snap *graphalgo.Snapshot, opts graphalgo.LouvainOptions) (map[graph.Ref]int, error) {
	return graphalgo.Louvain(ctx, snap, opts)
}

func (a *API) LabelPropagation(ctx context.Context, snap *graphalgo.Snapshot, opts graphalgo.LabelPropagationOptions) (map[graph.Ref]int, error) {
	return graphalgo.LabelPropagation(ctx, snap, opts)
}

func (a *API) ExportDOT(ctx context.Context, snap *graphalgo.Snapshot, opts graphalgo.ExportOptions) (string, error) {
	return graphalgo.ExportDOT(ctx, snap, opts)
}

func (a *API) ExportNodeLink(ctx context.Context, snap *graphalgo.Snapshot, opts graphalgo.ExportOptions) (graphalgo.NodeLinkGraph, error) {
	return graphalgo.ExportNodeLink(ctx, snap, opts)
}

// Close releases the embedding cache's Badger handle, if one was opened.
func (a *API) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}
