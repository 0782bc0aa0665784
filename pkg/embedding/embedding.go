// Package embedding generates the unit-normalized vectors stored by
// pkg/graph (spec §4.C). Every Provider implementation returns vectors
// already normalized to unit length so that cosine similarity in
// pkg/vectorindex reduces to a dot product.
//
// Grounded on the teacher's pkg/embed: same Ollama/OpenAI HTTP client shape,
// generalized behind a ModelIdentity() method so pkg/embedcache can detect
// when a cache was built with a different model or dimension.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// ErrEmptyText is returned when Embed is called with empty input.
var ErrEmptyText = errors.New("embedding: empty text")

// Provider generates embedding vectors from text. Implementations must be
// safe for concurrent use: the ingestion pipeline calls Embed from multiple
// worker goroutines (spec §4.F).
type Provider interface {
	// Embed returns a unit-normalized vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds multiple texts, one call per text for providers
	// with no native batch endpoint.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed vector length this provider produces.
	Dimension() int

	// ModelIdentity returns a stable string identifying the model (and,
	// where relevant, its endpoint) — the compatibility key pkg/embedcache
	// checks a cache manifest against.
	ModelIdentity() string
}

// normalize scales v to unit length in place and returns it. A
// zero-length vector (all-zero embedding, possible for an empty or
// degenerate input) is left unchanged rather than dividing by zero.
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Config configures an HTTP-backed Provider (Ollama or OpenAI).
type Config struct {
	APIURL     string
	APIPath    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// DefaultOllamaConfig targets a local Ollama server running
// mxbai-embed-large (1024 dimensions).
func DefaultOllamaConfig() Config {
	return Config{
		APIURL:     "http://localhost:11434",
		APIPath:    "/api/embeddings",
		Model:      "mxbai-embed-large",
		Dimensions: 1024,
		Timeout:    30 * time.Second,
	}
}

// DefaultOpenAIConfig targets text-embedding-3-small (1536 dimensions).
func DefaultOpenAIConfig(apiKey string) Config {
	return Config{
		APIURL:     "https://api.openai.com",
		APIPath:    "/v1/embeddings",
		APIKey:     apiKey,
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		Timeout:    30 * time.Second,
	}
}

// OllamaProvider calls a local Ollama server's /api/embeddings endpoint.
type OllamaProvider struct {
	cfg    Config
	client *http.Client
}

// NewOllama builds an OllamaProvider. A zero-value cfg.Timeout falls back
// to DefaultOllamaConfig's 30s.
func NewOllama(cfg Config) *OllamaProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.APIPath == "" {
		cfg.APIPath = "/api/embeddings"
	}
	return &OllamaProvider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	body, err := json.Marshal(ollamaRequest{Model: p.cfg.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL+p.cfg.APIPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding: ollama returned %d: %s", resp.StatusCode, string(b))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedding: decode ollama response: %w", err)
	}
	return normalize(out.Embedding), nil
}

func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedding: batch item %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (p *OllamaProvider) Dimension() int { return p.cfg.Dimensions }

func (p *OllamaProvider) ModelIdentity() string {
	return fmt.Sprintf("ollama:%s@%s", p.cfg.Model, p.cfg.APIURL)
}

// OpenAIProvider calls OpenAI's /v1/embeddings endpoint.
type OpenAIProvider struct {
	cfg    Config
	client *http.Client
}

// NewOpenAI builds an OpenAIProvider.
func NewOpenAI(cfg Config) *OpenAIProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.APIPath == "" {
		cfg.APIPath = "/v1/embeddings"
	}
	return &OpenAIProvider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type openAIRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	body, err := json.Marshal(openAIRequest{Model: p.cfg.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL+p.cfg.APIPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding: openai returned %d: %s", resp.StatusCode, string(b))
	}

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedding: decode openai response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embedding: openai returned no data")
	}
	return normalize(out.Data[0].Embedding), nil
}

func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedding: batch item %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (p *OpenAIProvider) Dimension() int { return p.cfg.Dimensions }

func (p *OpenAIProvider) ModelIdentity() string {
	return fmt.Sprintf("openai:%s", p.cfg.Model)
}
