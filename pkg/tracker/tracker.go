// Package tracker implements the content-hash registry (spec §4.B):
// classify a path as New/Changed/Unchanged/Deleted, and remember which
// graph node keys a file most recently produced so they can be retracted
// on re-analysis or deletion.
//
// Grounded on apoc/hashing's hex-digest convention (crypto/* + hex.Encode)
// and storage/schema.go's "registry of records keyed by a stable identity,
// guarded by a mutex" shape.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/codesage/codesage/pkg/graph"
)

// Class is the result of Classify.
type Class uint8

const (
	New Class = iota
	Changed
	Unchanged
	Deleted
)

func (c Class) String() string {
	switch c {
	case New:
		return "New"
	case Changed:
		return "Changed"
	case Unchanged:
		return "Unchanged"
	case Deleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// NodeKey is a (Kind, NodeID) pair, matching a graph.Ref's identity without
// importing graph's edge/embedding machinery into the public API surface
// unnecessarily — kept as graph.Ref directly since both packages already
// depend on the same module.
type NodeKey = graph.Ref

// record is what the tracker remembers about one file.
type record struct {
	hash  string
	nodes []NodeKey
}

// HashFunc computes the content-hash used for change detection.
type HashFunc func(content []byte) string

// Tracker is a single-owner, mutex-guarded content-hash registry (spec
// §5: "FileTracker... single-owner components").
type Tracker struct {
	mu       sync.Mutex
	records  map[string]record
	hashFunc HashFunc
}

// New creates an empty Tracker using the default SHA-256 hash function.
func New() *Tracker {
	return &Tracker{records: make(map[string]record), hashFunc: HashBytes}
}

// NewWithHash creates an empty Tracker using a caller-supplied hash
// function, e.g. FastHashBytes for large trees where BLAKE2b's extra
// throughput over SHA-256 matters more than FIPS compliance.
func NewWithHash(fn HashFunc) *Tracker {
	return &Tracker{records: make(map[string]record), hashFunc: fn}
}

// HashBytes returns the SHA-256 hex digest of content, the tracker's
// default content-hash function.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FastHashBytes returns the BLAKE2b-256 hex digest of content, an
// alternate HashFunc for trees large enough that hash throughput
// dominates ingestion time.
func FastHashBytes(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Classify compares the hash of content against the stored hash for path.
// A path never seen before is New; a path whose hash differs from the
// stored one is Changed; a matching hash is Unchanged. Deleted is only
// ever returned by the caller's own bookkeeping (the pipeline synthesizes
// it for paths that existed before discovery but are absent from this
// run) — Classify itself only distinguishes New/Changed/Unchanged since it
// is always called with content in hand.
func (t *Tracker) Classify(path string, content []byte) Class {
	t.mu.Lock()
	defer t.mu.Unlock()

	hash := t.hashFunc(content)
	rec, ok := t.records[path]
	if !ok {
		return New
	}
	if rec.hash == hash {
		return Unchanged
	}
	return Changed
}

// Record stores the new hash and node keys produced from path. After
// Record, Classify on the same content returns Unchanged (spec §4.B
// invariant).
func (t *Tracker) Record(path string, content []byte, nodes []NodeKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]NodeKey, len(nodes))
	copy(cp, nodes)
	t.records[path] = record{hash: t.hashFunc(content), nodes: cp}
}

// Drop removes path from the registry and returns the node keys it had
// last produced, so the caller can retract them from the GraphStore.
func (t *Tracker) Drop(path string) []NodeKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[path]
	if !ok {
		return nil
	}
	delete(t.records, path)
	return rec.nodes
}

// Paths returns every path currently tracked, used by the pipeline to
// synthesize Deleted entries for paths missing from a discovery pass.
func (t *Tracker) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.records))
	for p := range t.records {
		out = append(out, p)
	}
	return out
}
