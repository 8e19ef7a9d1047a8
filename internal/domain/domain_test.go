package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_OverlayWins(t *testing.T) {
	base := Metadata{MetaCategory: "employees", MetaSectionTitle: "doc-level"}
	overlay := Metadata{MetaSectionTitle: "History"}

	merged := Merge(base, overlay)

	assert.Equal(t, "employees", merged[MetaCategory])
	assert.Equal(t, "History", merged[MetaSectionTitle])
	assert.Equal(t, "doc-level", base[MetaSectionTitle], "base must not be mutated")
}

func TestMerge_NilInputs(t *testing.T) {
	merged := Merge(nil, nil)
	require.NotNil(t, merged)
	assert.Empty(t, merged)
}

func TestChunkWithEmbedding_Copies(t *testing.T) {
	vec := []float32{1, 2, 3}
	c := Chunk{ID: "a", Metadata: Metadata{MetaCategory: "x"}}

	out := c.WithEmbedding(vec)
	vec[0] = 42
	out.Metadata[MetaCategory] = "y"

	assert.Equal(t, float32(1), out.Embedding[0])
	assert.Nil(t, c.Embedding)
	assert.Equal(t, "x", c.Metadata[MetaCategory])
}

func TestProviderError_Transient(t *testing.T) {
	err := fmt.Errorf("call: %w", &ProviderError{Provider: "openai", StatusCode: 429, Transient: true, Err: errors.New("slow down")})
	assert.True(t, IsTransient(err))

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 429, pe.StatusCode)

	fatal := &ProviderError{Provider: "openai", StatusCode: 400, Err: errors.New("bad request")}
	assert.False(t, IsTransient(fatal))
}

func TestTransientStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, TransientStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		assert.False(t, TransientStatus(code), code)
	}
}

func TestLoadError_Unwrap(t *testing.T) {
	inner := errors.New("permission denied")
	err := &LoadError{Path: "kb/hr", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "kb/hr")
}
