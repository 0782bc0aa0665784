// Package config handles codesage configuration via environment variables,
// with an optional YAML file for overrides.
//
// Configuration is loaded from environment variables using LoadFromEnv() and
// can be validated with Validate() before use. An optional YAML file (path
// passed explicitly to LoadFromEnvOrFile) can override individual fields; environment variables always win over the
// file, matching the teacher's own env-over-file precedence in
// apoc/config.go's LoadFromEnvOrFile.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// Environment Variables:
//
//   - CODESAGE_DATA_DIR - badger embedding-cache directory (default "./data")
//   - CODESAGE_WORKERS - ingestion concurrency (default: NumCPU)
//   - CODESAGE_FILE_TIMEOUT - per-file analysis timeout (default "30s")
//   - CODESAGE_WRITE_TIMEOUT - graph store write-lock timeout (default "0",
//     meaning no timeout)
//   - CODESAGE_EMBEDDING_PROVIDER - "ollama", "openai", or "deterministic"
//   - CODESAGE_EMBEDDING_MODEL - model name passed to the provider
//   - CODESAGE_EMBEDDING_API_URL - provider base URL
//   - CODESAGE_EMBEDDING_API_KEY - provider API key (OpenAI only)
//   - CODESAGE_EMBEDDING_DIMENSIONS - vector width
//   - CODESAGE_MAX_DEPTH - discovery recursion depth (default 0, unlimited)
//   - CODESAGE_EXCLUDE - comma-separated doublestar exclude patterns
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every codesage runtime setting.
type Config struct {
	DataDir      string        `yaml:"data_dir"`
	Workers      int           `yaml:"workers"`
	FileTimeout  time.Duration `yaml:"file_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxDepth     int           `yaml:"max_depth"`
	Exclude      []string      `yaml:"exclude"`

	Embedding EmbeddingConfig `yaml:"embedding"`
}

// EmbeddingConfig selects and configures the embedding.Provider used by the
// ingestion pipeline.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "ollama", "openai", "deterministic"
	Model      string `yaml:"model"`
	APIURL     string `yaml:"api_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// LoadFromEnv builds a Config from environment variables, falling back to
// defaults suited to local/offline use (deterministic embeddings, unlimited
// recursion, unlimited write timeout — spec §5's graph.Store treats a zero
// WriteTimeout as infinite).
func LoadFromEnv() *Config {
	cfg := &Config{
		DataDir:      getEnv("CODESAGE_DATA_DIR", "./data"),
		Workers:      getEnvInt("CODESAGE_WORKERS", 0),
		FileTimeout:  getEnvDuration("CODESAGE_FILE_TIMEOUT", 30*time.Second),
		WriteTimeout: getEnvDuration("CODESAGE_WRITE_TIMEOUT", 0),
		MaxDepth:     getEnvInt("CODESAGE_MAX_DEPTH", 0),
		Exclude:      getEnvStringSlice("CODESAGE_EXCLUDE", []string{".git/**", "node_modules/**", "vendor/**"}),
	}

	cfg.Embedding.Provider = getEnv("CODESAGE_EMBEDDING_PROVIDER", "deterministic")
	cfg.Embedding.Model = getEnv("CODESAGE_EMBEDDING_MODEL", "mxbai-embed-large")
	cfg.Embedding.APIURL = getEnv("CODESAGE_EMBEDDING_API_URL", "http://localhost:11434")
	cfg.Embedding.APIKey = getEnv("CODESAGE_EMBEDDING_API_KEY", "")
	cfg.Embedding.Dimensions = getEnvInt("CODESAGE_EMBEDDING_DIMENSIONS", 1024)

	return cfg
}

// LoadConfig reads a YAML override file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadFromEnvOrFile starts from LoadFromEnv's defaults, overlays path's YAML
// fields when it exists, then re-applies any environment variables that were
// explicitly set — env always wins over file, per the teacher's own
// LoadFromEnvOrFile precedence in apoc/config.go.
func LoadFromEnvOrFile(path string) *Config {
	cfg := LoadFromEnv()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	merged := *cfg
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return cfg
	}
	overlayEnv(&merged)
	return &merged
}

// overlayEnv re-applies explicitly set environment variables on top of a
// file-loaded Config, so env always takes precedence.
func overlayEnv(cfg *Config) {
	if v, ok := os.LookupEnv("CODESAGE_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if _, ok := os.LookupEnv("CODESAGE_WORKERS"); ok {
		cfg.Workers = getEnvInt("CODESAGE_WORKERS", cfg.Workers)
	}
	if _, ok := os.LookupEnv("CODESAGE_FILE_TIMEOUT"); ok {
		cfg.FileTimeout = getEnvDuration("CODESAGE_FILE_TIMEOUT", cfg.FileTimeout)
	}
	if _, ok := os.LookupEnv("CODESAGE_WRITE_TIMEOUT"); ok {
		cfg.WriteTimeout = getEnvDuration("CODESAGE_WRITE_TIMEOUT", cfg.WriteTimeout)
	}
	if _, ok := os.LookupEnv("CODESAGE_MAX_DEPTH"); ok {
		cfg.MaxDepth = getEnvInt("CODESAGE_MAX_DEPTH", cfg.MaxDepth)
	}
	if _, ok := os.LookupEnv("CODESAGE_EXCLUDE"); ok {
		cfg.Exclude = getEnvStringSlice("CODESAGE_EXCLUDE", cfg.Exclude)
	}
	if _, ok := os.LookupEnv("CODESAGE_EMBEDDING_DIMENSIONS"); ok {
		cfg.Embedding.Dimensions = getEnvInt("CODESAGE_EMBEDDING_DIMENSIONS", cfg.Embedding.Dimensions)
	}
	if v, ok := os.LookupEnv("CODESAGE_EMBEDDING_PROVIDER"); ok {
		cfg.Embedding.Provider = v
	}
	if v, ok := os.LookupEnv("CODESAGE_EMBEDDING_MODEL"); ok {
		cfg.Embedding.Model = v
	}
	if v, ok := os.LookupEnv("CODESAGE_EMBEDDING_API_URL"); ok {
		cfg.Embedding.APIURL = v
	}
	if v, ok := os.LookupEnv("CODESAGE_EMBEDDING_API_KEY"); ok {
		cfg.Embedding.APIKey = v
	}
}

// Validate checks the configuration for logical errors before use.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0, got %d", c.Workers)
	}
	if c.FileTimeout <= 0 {
		return fmt.Errorf("config: file_timeout must be positive")
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("config: write_timeout must be >= 0 (0 means unlimited)")
	}
	switch c.Embedding.Provider {
	case "ollama", "openai", "deterministic":
	default:
		return fmt.Errorf("config: unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("config: embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("config: embedding provider openai requires an api key")
	}
	return nil
}

// String returns a safe, loggable representation (no API keys).
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DataDir: %s, Workers: %d, Embedding: %s/%s}",
		c.DataDir, c.Workers, c.Embedding.Provider, c.Embedding.Model,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultVal
}
