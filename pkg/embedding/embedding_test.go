package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestDeterministicEmbedIsUnitNormalized(t *testing.T) {
	p := NewDeterministic(16)
	v, err := p.Embed(context.Background(), "package main")
	require.NoError(t, err)
	assert.Len(t, v, 16)
	assert.InDelta(t, 1.0, unitNorm(v), 1e-4)
}

func TestDeterministicEmbedIsStable(t *testing.T) {
	p := NewDeterministic(8)
	a, err := p.Embed(context.Background(), "func Foo()")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "func Foo()")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeterministicEmbedDiffersByText(t *testing.T) {
	p := NewDeterministic(8)
	a, _ := p.Embed(context.Background(), "func Foo()")
	b, _ := p.Embed(context.Background(), "func Bar()")
	assert.NotEqual(t, a, b)
}

func TestDeterministicEmbedRejectsEmptyText(t *testing.T) {
	p := NewDeterministic(8)
	_, err := p.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestDeterministicEmbedBatch(t *testing.T) {
	p := NewDeterministic(4)
	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 4)
	}
}

func TestModelIdentityDistinguishesProviders(t *testing.T) {
	d := NewDeterministic(8)
	o := NewOllama(DefaultOllamaConfig())
	assert.NotEqual(t, d.ModelIdentity(), o.ModelIdentity())
}
