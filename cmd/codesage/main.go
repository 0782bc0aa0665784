// Package main provides the codesage CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codesage/codesage/pkg/analyzer"
	"github.com/codesage/codesage/pkg/config"
	"github.com/codesage/codesage/pkg/embedcache"
	"github.com/codesage/codesage/pkg/embedding"
	"github.com/codesage/codesage/pkg/graph"
	"github.com/codesage/codesage/pkg/ingest"
	"github.com/codesage/codesage/pkg/notify"
	"github.com/codesage/codesage/pkg/queryapi"
	"github.com/codesage/codesage/pkg/retrieval"
	"github.com/codesage/codesage/pkg/tracker"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	noColor := os.Getenv("NO_COLOR") != ""

	rootCmd := &cobra.Command{
		Use:   "codesage",
		Short: "codesage - code intelligence server backed by a knowledge graph",
		Long: `codesage builds a typed knowledge graph of a codebase (modules, functions,
call and import edges) plus embeddings, and answers semantic and
structural queries over it: vector search, RRF hybrid retrieval,
PageRank/centrality, bounded path enumeration, and community detection.`,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().Bool("no-color", noColor, "disable colored output")

	rootCmd.AddCommand(newVersionCmd(), newIngestCmd(), newQueryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("codesage v%s (%s)\n", version, commit)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := config.LoadFromEnvOrFile(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildEmbedder(cfg *config.Config) (embedding.Provider, error) {
	switch cfg.Embedding.Provider {
	case "ollama":
		return embedding.NewOllama(embedding.Config{
			APIURL: cfg.Embedding.APIURL, Model: cfg.Embedding.Model, Dimensions: cfg.Embedding.Dimensions,
		}), nil
	case "openai":
		return embedding.NewOpenAI(embedding.Config{
			APIURL: cfg.Embedding.APIURL, APIKey: cfg.Embedding.APIKey, Model: cfg.Embedding.Model, Dimensions: cfg.Embedding.Dimensions,
		}), nil
	default:
		return embedding.NewDeterministic(cfg.Embedding.Dimensions), nil
	}
}

func buildAPI(cfg *config.Config, projectKey string) (*queryapi.API, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	var cache *embedcache.Cache
	if cfg.DataDir != "" {
		c, err := embedcache.Open(projectKey, embedder.ModelIdentity(), embedder.Dimension(), embedcache.Options{Dir: cfg.DataDir})
		if err != nil && !errors.Is(err, embedcache.ErrIncompatible) {
			return nil, fmt.Errorf("opening embedding cache: %w", err)
		}
		cache = c
	}

	registry := analyzer.NewRegistry()
	registry.Register(analyzer.NewGoAnalyzer())
	registry.SetFallback(analyzer.NewGenericAnalyzer())

	store := graph.New(graph.Options{VectorDim: embedder.Dimension(), WriteTimeout: cfg.WriteTimeout})

	return queryapi.New(queryapi.Deps{
		Store:    store,
		Tracker:  tracker.New(),
		Registry: registry,
		Embedder: embedder,
		Cache:    cache,
		Notify:   notify.NewLogSink(nil),
		Options:  ingest.Options{Concurrency: cfg.Workers, PerFileTimeout: cfg.FileTimeout},
	}), nil
}

func newIngestCmd() *cobra.Command {
	var (
		incremental bool
		forceRefresh bool
	)
	cmd := &cobra.Command{
		Use:   "ingest [paths...]",
		Short: "Analyze source paths and build the knowledge graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			api, err := buildAPI(cfg, projectKeyFor(args))
			if err != nil {
				return err
			}
			defer api.Close()

			ctx, cancel := signalContext()
			defer cancel()

			report, err := api.AnalyzePaths(ctx, args, ingest.AnalyzeOptions{
				Incremental: incremental, ForceRefresh: forceRefresh, MaxDepth: cfg.MaxDepth, ExcludePatterns: cfg.Exclude,
			})
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().BoolVar(&incremental, "incremental", true, "skip files whose content hash hasn't changed")
	cmd.Flags().BoolVar(&forceRefresh, "force", false, "re-analyze every file regardless of hash")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var (
		strategy string
		limit    int
		module   string
	)
	cmd := &cobra.Command{
		Use:   "query [paths...] -- <text>",
		Short: "Run a semantic/graph/fusion query against a freshly ingested graph",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args[:len(args)-1]
			queryText := args[len(args)-1]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			api, err := buildAPI(cfg, projectKeyFor(paths))
			if err != nil {
				return err
			}
			defer api.Close()

			ctx, cancel := signalContext()
			defer cancel()

			if _, err := api.AnalyzePaths(ctx, paths, ingest.AnalyzeOptions{Incremental: true, MaxDepth: cfg.MaxDepth, ExcludePatterns: cfg.Exclude}); err != nil {
				return err
			}

			opts := retrieval.Options{Limit: limit, Threshold: -1}
			if module != "" {
				opts.Filter = retrieval.Filter{"module": module}
			}

			var hits []retrieval.Hit
			switch strategy {
			case "semantic":
				hits, err = api.SemanticFirst(ctx, queryText, opts)
			case "graph":
				hits, err = api.GraphFirst(ctx, queryText, opts)
			default:
				hits, err = api.Fusion(ctx, queryText, opts)
			}
			if err != nil {
				return err
			}
			return printJSON(hits)
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "fusion", "retrieval strategy: semantic, graph, or fusion")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum hits to return")
	cmd.Flags().StringVar(&module, "module", "", "restrict results to one module")
	return cmd
}

func projectKeyFor(paths []string) string {
	if len(paths) == 0 {
		return "codesage"
	}
	return paths[0]
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return context.WithTimeout(ctx, 30*time.Minute)
}
