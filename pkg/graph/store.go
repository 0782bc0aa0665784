package graph

import (
	"sync"
	"time"
)

// Options configures a Store.
type Options struct {
	// VectorDim is the fixed embedding dimension this store accepts.
	// PutEmbedding rejects vectors of any other length.
	VectorDim int

	// WriteTimeout bounds every mutating call. Zero means no deadline
	// (spec default: infinity).
	WriteTimeout time.Duration
}

// Store is the concurrent-safe, typed in-memory GraphStore (spec §4.A).
//
// Point reads (GetNode, Outgoing, Incoming, GetEmbedding, ...) take a read
// lock and may run concurrently with each other. Every mutation
// (PutNode, PutEdge, PutEmbedding, RemoveNode, Clear) takes the write lock,
// so mutations observe a single total order — satisfying spec §5's "single
// owning task" contract without a dedicated writer goroutine, the same way
// the teacher's MemoryEngine does.
type Store struct {
	mu   sync.RWMutex
	opts Options

	nodes map[Ref]NodeData
	// byKind indexes node refs per Kind for ListNodes(kind).
	byKind map[Kind]map[Ref]struct{}

	edges    map[edgeKey]EdgeMetadata
	outgoing map[Ref]map[edgeKey]struct{}
	incoming map[Ref]map[edgeKey]struct{}

	embeddings map[Ref]Embedding
}

// New creates an empty Store.
func New(opts Options) *Store {
	return &Store{
		opts:       opts,
		nodes:      make(map[Ref]NodeData),
		byKind:     make(map[Kind]map[Ref]struct{}),
		edges:      make(map[edgeKey]EdgeMetadata),
		outgoing:   make(map[Ref]map[edgeKey]struct{}),
		incoming:   make(map[Ref]map[edgeKey]struct{}),
		embeddings: make(map[Ref]Embedding),
	}
}

// writeLockPollInterval bounds how often withWriteLock retries TryLock
// while waiting for a contended write lock to free up.
const writeLockPollInterval = 200 * time.Microsecond

// withWriteLock runs fn under the write lock, honoring WriteTimeout: if the
// lock can't be acquired before the deadline, ErrTimeout is returned and fn
// never runs, so the store is left unchanged.
func (s *Store) withWriteLock(fn func()) error {
	if s.opts.WriteTimeout <= 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn()
		return nil
	}

	deadline := time.Now().Add(s.opts.WriteTimeout)
	for {
		if s.mu.TryLock() {
			fn()
			s.mu.Unlock()
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(writeLockPollInterval)
	}
}

// PutNode upserts a node by (kind, id). Its only error is ErrTimeout, when a
// WriteTimeout is set and the write lock is not acquired in time.
func (s *Store) PutNode(kind Kind, id NodeID, data NodeData) error {
	ref := Ref{Kind: kind, ID: id}
	return s.withWriteLock(func() {
		s.nodes[ref] = data
		if s.byKind[kind] == nil {
			s.byKind[kind] = make(map[Ref]struct{})
		}
		s.byKind[kind][ref] = struct{}{}
	})
}

// GetNode returns the node's data and whether it exists.
func (s *Store) GetNode(kind Kind, id NodeID) (NodeData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.nodes[Ref{Kind: kind, ID: id}]
	return data, ok
}

// FindFunction looks up a Function node by (module, name) ignoring arity,
// returning the first match found.
func (s *Store) FindFunction(module, name string) (NodeID, NodeData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ref := range s.byKind[KindFunction] {
		if ref.ID.Module == module && ref.ID.Name == name {
			return ref.ID, s.nodes[ref], true
		}
	}
	return NodeID{}, NodeData{}, false
}

// ListNodes returns nodes of the given kind (or all kinds when kindFilter
// is nil), capped at limit (limit <= 0 means unbounded).
func (s *Store) ListNodes(kindFilter *Kind, limit int) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, 0)
	add := func(ref Ref, data NodeData) bool {
		out = append(out, Node{Kind: ref.Kind, ID: ref.ID, Data: data})
		return limit <= 0 || len(out) < limit
	}

	if kindFilter != nil {
		for ref := range s.byKind[*kindFilter] {
			if !add(ref, s.nodes[ref]) {
				break
			}
		}
		return out
	}

	for ref, data := range s.nodes {
		if !add(ref, data) {
			break
		}
	}
	return out
}

// RemoveNode deletes the node record, every edge touching its flattened
// ref (either endpoint), and its embedding, atomically.
func (s *Store) RemoveNode(kind Kind, id NodeID) error {
	ref := Ref{Kind: kind, ID: id}
	return s.withWriteLock(func() {
		delete(s.nodes, ref)
		if m := s.byKind[kind]; m != nil {
			delete(m, ref)
		}
		delete(s.embeddings, ref)

		for key := range s.outgoing[ref] {
			s.deleteEdgeKey(key)
		}
		for key := range s.incoming[ref] {
			s.deleteEdgeKey(key)
		}
		delete(s.outgoing, ref)
		delete(s.incoming, ref)
	})
}

// deleteEdgeKey removes a single edge from all three edge tables. Caller
// must hold the write lock.
func (s *Store) deleteEdgeKey(key edgeKey) {
	delete(s.edges, key)
	if m := s.outgoing[key.from]; m != nil {
		delete(m, key)
	}
	if m := s.incoming[key.to]; m != nil {
		delete(m, key)
	}
}

// PutEdge upserts an edge keyed by (from, to, kind). weight defaults to 1.0
// when 0 is passed with a nil metadata map; pass a non-nil meta to set
// weight 0 explicitly. A negative weight is stored as given.
func (s *Store) PutEdge(from, to Ref, kind EdgeKind, weight float64, metadata map[string]any) error {
	key := edgeKey{from: from, to: to, kind: kind}
	if weight == 0 && metadata == nil {
		weight = 1.0
	}
	meta := EdgeMetadata{Weight: weight, Metadata: metadata}

	return s.withWriteLock(func() {
		s.edges[key] = meta
		if s.outgoing[from] == nil {
			s.outgoing[from] = make(map[edgeKey]struct{})
		}
		s.outgoing[from][key] = struct{}{}
		if s.incoming[to] == nil {
			s.incoming[to] = make(map[edgeKey]struct{})
		}
		s.incoming[to][key] = struct{}{}
	})
}

// Outgoing returns edges leaving from, filtered by kind when kindFilter is
// non-nil.
func (s *Store) Outgoing(from Ref, kindFilter *EdgeKind) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Edge
	for key := range s.outgoing[from] {
		if kindFilter != nil && key.kind != *kindFilter {
			continue
		}
		out = append(out, Edge{From: key.from, To: key.to, Kind: key.kind, Meta: s.edges[key]})
	}
	return out
}

// Incoming returns edges arriving at to, filtered by kind when kindFilter
// is non-nil.
func (s *Store) Incoming(to Ref, kindFilter *EdgeKind) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Edge
	for key := range s.incoming[to] {
		if kindFilter != nil && key.kind != *kindFilter {
			continue
		}
		out = append(out, Edge{From: key.from, To: key.to, Kind: key.kind, Meta: s.edges[key]})
	}
	return out
}

// EdgeWeight returns the weight of the (from, to, kind) edge if present.
func (s *Store) EdgeWeight(from, to Ref, kind EdgeKind) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.edges[edgeKey{from: from, to: to, kind: kind}]
	if !ok {
		return 0, false
	}
	return meta.Weight, true
}

// AllEdges returns a snapshot of every stored edge. Used by pkg/graphalgo
// to copy out the edge set once at entry, per spec §5.
func (s *Store) AllEdges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, 0, len(s.edges))
	for key, meta := range s.edges {
		out = append(out, Edge{From: key.from, To: key.to, Kind: key.kind, Meta: meta})
	}
	return out
}

// AllNodeRefs returns every node ref currently registered (used by
// algorithms that need the full node universe, not just edge endpoints).
func (s *Store) AllNodeRefs() []Ref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Ref, 0, len(s.nodes))
	for ref := range s.nodes {
		out = append(out, ref)
	}
	return out
}

// PutEmbedding stores a unit-normalized vector and its source text,
// rejecting vectors whose dimension differs from the store's configured
// VectorDim.
func (s *Store) PutEmbedding(kind Kind, id NodeID, vector []float32, text string) error {
	if s.opts.VectorDim > 0 && len(vector) != s.opts.VectorDim {
		return ErrDimensionMismatch
	}
	ref := Ref{Kind: kind, ID: id}
	cp := make([]float32, len(vector))
	copy(cp, vector)
	return s.withWriteLock(func() {
		s.embeddings[ref] = Embedding{Vector: cp, Text: text}
	})
}

// GetEmbedding returns the stored embedding for (kind, id), if any.
func (s *Store) GetEmbedding(kind Kind, id NodeID) (Embedding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emb, ok := s.embeddings[Ref{Kind: kind, ID: id}]
	return emb, ok
}

// EmbeddingEntry is one row of ListEmbeddings' result.
type EmbeddingEntry struct {
	Kind Kind
	ID   NodeID
	Embedding
}

// ListEmbeddings returns stored embeddings of the given kind (or all kinds
// when kindFilter is nil), capped at limit (limit <= 0 means unbounded).
func (s *Store) ListEmbeddings(kindFilter *Kind, limit int) []EmbeddingEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EmbeddingEntry, 0)
	for ref, emb := range s.embeddings {
		if kindFilter != nil && ref.Kind != *kindFilter {
			continue
		}
		out = append(out, EmbeddingEntry{Kind: ref.Kind, ID: ref.ID, Embedding: emb})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Stats returns current node/edge/embedding counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Nodes: len(s.nodes), Edges: len(s.edges), Embeddings: len(s.embeddings)}
}

// Clear removes every node, edge, and embedding.
func (s *Store) Clear() error {
	return s.withWriteLock(func() {
		s.nodes = make(map[Ref]NodeData)
		s.byKind = make(map[Kind]map[Ref]struct{})
		s.edges = make(map[edgeKey]EdgeMetadata)
		s.outgoing = make(map[Ref]map[edgeKey]struct{})
		s.incoming = make(map[Ref]map[edgeKey]struct{})
		s.embeddings = make(map[Ref]Embedding)
	})
}
