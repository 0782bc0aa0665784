// Package ingest implements the IngestionPipeline (spec §4.F): discover
// source files, classify them against the FileTracker, analyze changed
// ones on a bounded worker pool, assemble the results into the
// GraphStore, and generate embeddings for new or changed nodes.
//
// Grounded on the teacher's pkg/linkpredict BuildGraphFromEngineOptimized
// (chunked, cancellable, fan-out/fan-in graph construction) for the
// worker-pool shape, wired onto golang.org/x/sync's errgroup+semaphore
// instead of the teacher's hand-rolled channel/WaitGroup pool.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/codesage/codesage/pkg/analyzer"
	"github.com/codesage/codesage/pkg/embedcache"
	"github.com/codesage/codesage/pkg/embedding"
	"github.com/codesage/codesage/pkg/graph"
	"github.com/codesage/codesage/pkg/notify"
	"github.com/codesage/codesage/pkg/tracker"
)

// ErrTaskTimeout is reported per file when analysis exceeds PerFileTimeout.
var ErrTaskTimeout = errors.New("ingest: task timeout")

// Options configures a Pipeline.
type Options struct {
	// Concurrency is the worker pool size. Zero means runtime.NumCPU().
	Concurrency int

	// PerFileTimeout bounds a single file's analysis. Zero means 30s
	// (spec §4.F step 3 default).
	PerFileTimeout time.Duration
}

// AnalyzeOptions configures one AnalyzePaths call.
type AnalyzeOptions struct {
	Incremental     bool
	ForceRefresh    bool
	MaxDepth        int
	ExcludePatterns []string
}

// FileOutcome classifies how one discovered file was handled.
type FileOutcome uint8

const (
	OutcomeSuccess FileOutcome = iota
	OutcomeError
	OutcomeSkipped
)

// FileError is one per-file failure captured in a BatchReport.
type FileError struct {
	File   string
	Reason string
}

// BatchReport is the result of AnalyzePaths (spec §4.F).
type BatchReport struct {
	ID          string
	Success     int
	Errors      int
	Skipped     int
	FileErrors  []FileError
	GraphStats  graph.Stats
}

// Pipeline wires the GraphStore, FileTracker, AnalyzerRegistry, and
// EmbeddingProvider into one ingestion entry point.
type Pipeline struct {
	Store    *graph.Store
	Tracker  *tracker.Tracker
	Registry *analyzer.Registry
	Embedder embedding.Provider
	Cache    *embedcache.Cache // optional, nil disables caching
	Notify   notify.Sink       // optional, nil means notify.Nop{}

	opts Options
}

// New builds a Pipeline. A nil notify.Sink defaults to notify.Nop{}.
func New(store *graph.Store, tr *tracker.Tracker, registry *analyzer.Registry, embedder embedding.Provider, cache *embedcache.Cache, sink notify.Sink, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.PerFileTimeout <= 0 {
		opts.PerFileTimeout = 30 * time.Second
	}
	if sink == nil {
		sink = notify.Nop{}
	}
	return &Pipeline{Store: store, Tracker: tr, Registry: registry, Embedder: embedder, Cache: cache, Notify: sink, opts: opts}
}

// discoveredFile is one entry from the discovery walk.
type discoveredFile struct {
	path  string
	depth int
}

// discover walks paths, skipping dotfiles/dirs and exclude-pattern
// matches, down to maxDepth (0 means unbounded).
func discover(paths []string, maxDepth int, excludePatterns []string) ([]discoveredFile, error) {
	var out []discoveredFile
	seen := make(map[string]struct{})

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("ingest: stat %s: %w", root, err)
		}
		if !info.IsDir() {
			out = append(out, discoveredFile{path: root, depth: 0})
			continue
		}

		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				rel = p
			}
			depth := 0
			if rel != "." {
				depth = strings.Count(rel, string(filepath.Separator))
			}

			base := d.Name()
			if base != "." && strings.HasPrefix(base, ".") && p != root {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if excluded(rel, excludePatterns) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if maxDepth > 0 && depth > maxDepth {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if _, dup := seen[p]; dup {
				return nil
			}
			seen[p] = struct{}{}
			out = append(out, discoveredFile{path: p, depth: depth})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("ingest: walk %s: %w", root, err)
		}
	}
	return out, nil
}

func excluded(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// AnalyzePaths runs discovery, change filtering, bounded parallel
// analysis, graph assembly, embedding generation, and tracking, returning
// a BatchReport (spec §4.F).
func (p *Pipeline) AnalyzePaths(ctx context.Context, paths []string, opts AnalyzeOptions) (*BatchReport, error) {
	report := &BatchReport{ID: uuid.NewString()}

	p.Notify.Notify(notify.Message{Event: notify.EventAnalysisStart, Params: map[string]any{"paths": paths}, Timestamp: time.Now()})

	files, err := discover(paths, opts.MaxDepth, opts.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	seenPaths := make(map[string]struct{}, len(files))
	for _, f := range files {
		seenPaths[f.path] = struct{}{}
	}
	if opts.Incremental && !opts.ForceRefresh {
		for _, tracked := range p.Tracker.Paths() {
			if _, ok := seenPaths[tracked]; !ok {
				for _, ref := range p.Tracker.Drop(tracked) {
					p.Store.RemoveNode(ref.Kind, ref.ID)
				}
				report.Skipped++
			}
		}
	}

	var mu sync.Mutex
	sem := semaphore.NewWeighted(int64(p.opts.Concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for _, f := range files {
		f := f
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			outcome, reason := p.processFile(gctx, f.path, opts)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case OutcomeSuccess:
				report.Success++
			case OutcomeSkipped:
				report.Skipped++
			case OutcomeError:
				report.Errors++
				report.FileErrors = append(report.FileErrors, FileError{File: f.path, Reason: reason})
			}
			p.Notify.Notify(notify.Message{
				Event:     notify.EventAnalysisFile,
				Params:    map[string]any{"file": f.path, "outcome": outcome},
				Timestamp: time.Now(),
			})
			return nil
		})
	}
	_ = g.Wait()

	report.GraphStats = p.Store.Stats()
	p.Notify.Notify(notify.Message{Event: notify.EventAnalysisComplete, Params: map[string]any{"report_id": report.ID}, Timestamp: time.Now()})
	return report, nil
}

// processFile classifies, analyzes (bounded by PerFileTimeout), and
// assembles one file into the store.
func (p *Pipeline) processFile(ctx context.Context, path string, opts AnalyzeOptions) (FileOutcome, string) {
	content, err := os.ReadFile(path)
	if err != nil {
		return OutcomeError, err.Error()
	}

	if opts.Incremental && !opts.ForceRefresh {
		class := p.Tracker.Classify(path, content)
		if class == tracker.Unchanged {
			return OutcomeSkipped, ""
		}
	}

	a, ok := p.Registry.Resolve(path, "")
	if !ok {
		return OutcomeSkipped, "no analyzer for file"
	}

	result, err := p.analyzeWithTimeout(ctx, a, content, path)
	if err != nil {
		if errors.Is(err, ErrTaskTimeout) {
			return OutcomeError, ErrTaskTimeout.Error()
		}
		return OutcomeError, err.Error()
	}

	for _, ref := range p.Tracker.Drop(path) {
		p.Store.RemoveNode(ref.Kind, ref.ID)
	}

	produced := p.assemble(ctx, result)
	p.Tracker.Record(path, content, produced)
	return OutcomeSuccess, ""
}

// analyzeWithTimeout runs a.Analyze on a background goroutine so a single
// slow or misbehaving analyzer cannot block the worker pool past
// PerFileTimeout (spec §5 per-file budget).
func (p *Pipeline) analyzeWithTimeout(ctx context.Context, a analyzer.Analyzer, content []byte, path string) (analyzer.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.PerFileTimeout)
	defer cancel()

	type outcome struct {
		result analyzer.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := a.Analyze(content, path)
		done <- outcome{result: r, err: err}
	}()

	select {
	case <-ctx.Done():
		return analyzer.Result{}, ErrTaskTimeout
	case o := <-done:
		return o.result, o.err
	}
}
