package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// DeterministicProvider derives a vector from a SHA-256 stream of text,
// with no network dependency. It exists for tests and offline ingestion
// runs where no embedding server is reachable; the vectors carry no
// semantic structure but are stable, unit-normalized, and satisfy every
// invariant a real provider must (spec §4.C).
//
// Grounded on apoc/hashing's "hash a value to a fixed-width digest"
// convention, extended by re-hashing with an incrementing counter to fill
// out a vector of arbitrary width.
type DeterministicProvider struct {
	dim   int
	model string
}

// NewDeterministic builds a DeterministicProvider producing vectors of
// the given dimension.
func NewDeterministic(dim int) *DeterministicProvider {
	return &DeterministicProvider{dim: dim, model: "deterministic-sha256"}
}

func (p *DeterministicProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	v := make([]float32, p.dim)
	block := 0
	var digest [32]byte
	for i := range v {
		byteOffset := i % 32
		if byteOffset == 0 {
			digest = sha256.Sum256(fmt.Appendf(nil, "%s#%d", text, block))
			block++
		}
		// Map 4 bytes of the digest to a signed float in roughly [-1, 1].
		start := (byteOffset / 4) * 4
		if start+4 > 32 {
			start = 28
		}
		raw := binary.BigEndian.Uint32(digest[start : start+4])
		v[i] = float32(int32(raw)) / float32(1<<31)
	}
	return normalize(v), nil
}

func (p *DeterministicProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (p *DeterministicProvider) Dimension() int { return p.dim }

func (p *DeterministicProvider) ModelIdentity() string {
	return fmt.Sprintf("%s:%d", p.model, p.dim)
}
