// Package embedcache implements the durable embedding cache (spec §4.D):
// a Badger-backed key-value store that lets re-ingesting an unchanged file
// skip an expensive embedding call by reusing a previously computed vector.
//
// A cache is scoped to a (project key, model identity, dimension) triple,
// stored as a manifest record. Opening a cache directory built under a
// different model or dimension returns ErrIncompatible rather than
// silently mixing vector spaces.
//
// Grounded on the teacher's pkg/storage BadgerEngine: same
// badger.DefaultOptions + low-memory tuning + key-prefix convention,
// narrowed from a full graph engine down to a single embedding cache.
package embedcache

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"

	"github.com/codesage/codesage/pkg/graph"
)

// ErrIncompatible is returned by Open when an existing cache directory's
// manifest does not match the requested (project key, model, dimension).
var ErrIncompatible = errors.New("embedcache: existing cache built with a different model or dimension")

// ErrClosed is returned by any call made after Close.
var ErrClosed = errors.New("embedcache: cache is closed")

const manifestKeyPrefix = "manifest:"
const vectorKeyPrefix = "vec:"

// Manifest records the compatibility key a cache was built under.
type Manifest struct {
	ProjectKey    string `json:"project_key"`
	ModelIdentity string `json:"model_identity"`
	Dimension     int    `json:"dimension"`
}

// Cache is a durable, disk-backed store of (content hash -> embedding)
// entries, keyed within one (project, model, dimension) namespace.
type Cache struct {
	db       *badger.DB
	manifest Manifest
	closed   bool
}

// Options configures Open.
type Options struct {
	// Dir is the on-disk directory Badger stores data in. Empty means
	// in-memory (data lost on Close; useful for tests).
	Dir string
}

// Open opens or creates a cache at opts.Dir scoped to the given
// (projectKey, modelIdentity, dimension). If a manifest already exists on
// disk and differs from the requested key, Open returns ErrIncompatible
// without touching existing data — the caller should then clear the
// directory or pick a fresh one (spec §4.D invariant: a stale cache never
// silently serves vectors from a different model).
func Open(projectKey, modelIdentity string, dimension int, opts Options) (*Cache, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.Dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("embedcache: open badger: %w", err)
	}

	want := Manifest{ProjectKey: projectKey, ModelIdentity: modelIdentity, Dimension: dimension}
	existing, found, err := readManifest(db, projectKey)
	if err != nil {
		db.Close()
		return nil, err
	}
	if found && existing != want {
		db.Close()
		return nil, ErrIncompatible
	}
	if !found {
		if err := writeManifest(db, want); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Cache{db: db, manifest: want}, nil
}

func manifestKey(projectKey string) []byte {
	return []byte(manifestKeyPrefix + projectKey)
}

func readManifest(db *badger.DB, projectKey string) (Manifest, bool, error) {
	var m Manifest
	found := false
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(manifestKey(projectKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			found = true
			return json.Unmarshal(val, &m)
		})
	})
	if err != nil {
		return Manifest{}, false, fmt.Errorf("embedcache: read manifest: %w", err)
	}
	return m, found, nil
}

func writeManifest(db *badger.DB, m Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("embedcache: encode manifest: %w", err)
	}
	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set(manifestKey(m.ProjectKey), data)
	})
	if err != nil {
		return fmt.Errorf("embedcache: write manifest: %w", err)
	}
	return nil
}

func vectorKey(projectKey, contentHash string, kind graph.Kind) []byte {
	return []byte(fmt.Sprintf("%s%s:%d:%s", vectorKeyPrefix, projectKey, kind, contentHash))
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.BigEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.BigEndian.Uint32(buf[i*4:]))
	}
	return v
}

// Load returns the cached embedding for (kind, contentHash) within this
// cache's project namespace, if present.
func (c *Cache) Load(kind graph.Kind, contentHash string) ([]float32, bool, error) {
	if c.closed {
		return nil, false, ErrClosed
	}
	var out []float32
	found := false
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(vectorKey(c.manifest.ProjectKey, contentHash, kind))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			found = true
			out = decodeVector(bytes.Clone(val))
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("embedcache: load: %w", err)
	}
	return out, found, nil
}

// Save stores vector under (kind, contentHash).
func (c *Cache) Save(kind graph.Kind, contentHash string, vector []float32) error {
	if c.closed {
		return ErrClosed
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(vectorKey(c.manifest.ProjectKey, contentHash, kind), encodeVector(vector))
	})
	if err != nil {
		return fmt.Errorf("embedcache: save: %w", err)
	}
	return nil
}

// Manifest returns the compatibility key this cache was opened with.
func (c *Cache) Manifest() Manifest { return c.manifest }

// Close releases the underlying Badger handle.
func (c *Cache) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}
