package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studylens/studylens/internal/domain"
	"github.com/studylens/studylens/internal/port"
)

type stubProvider struct {
	vec   []float32
	batch [][]float32
	err   error
}

func (s *stubProvider) ModelName() string { return "stub" }

func (s *stubProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	return s.vec, s.err
}

func (s *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.batch != nil {
		return s.batch, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = s.vec
	}
	return out, nil
}

func (s *stubProvider) Generate(_ context.Context, _ string, _ port.GenerateOptions) (string, error) {
	return "", errors.New("not implemented")
}

func TestEmbed_PrimaryPath(t *testing.T) {
	want := []float32{0.1, 0.2, 0.3}
	e := New(&stubProvider{vec: want}, 100)

	vec, scheme := e.Embed(context.Background(), "some text")
	assert.Equal(t, want, vec)
	assert.Equal(t, domain.SchemeOllama, scheme)
}

func TestEmbed_FallbackOnError(t *testing.T) {
	e := New(&stubProvider{err: errors.New("connection refused")}, 100)

	vec, scheme := e.Embed(context.Background(), "the warranty period is 24 months")
	assert.Equal(t, domain.SchemeHash, scheme)
	require.Len(t, vec, 100)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6, "fallback vector should be L2-normalized")
}

func TestEmbed_FallbackDeterministic(t *testing.T) {
	e := New(&stubProvider{err: errors.New("down")}, 100)

	a, _ := e.Embed(context.Background(), "entropy and enthalpy")
	b, _ := e.Embed(context.Background(), "entropy and enthalpy")
	assert.Equal(t, a, b)
}

func TestEmbed_FallbackZeroVectorStaysZero(t *testing.T) {
	e := New(&stubProvider{err: errors.New("down")}, 100)

	vec, scheme := e.Embed(context.Background(), "!!! ...")
	assert.Equal(t, domain.SchemeHash, scheme)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbed_FallbackBucketsStayInRange(t *testing.T) {
	// Bucket assignment must hold for any term hash, including values
	// above 2^31 that would go negative through a plain int conversion
	// on 32-bit platforms.
	e := New(&stubProvider{err: errors.New("down")}, 7)

	var sb strings.Builder
	for i := 0; i < 64; i++ {
		fmt.Fprintf(&sb, "term%d 词汇%d ", i, i)
	}
	vec, scheme := e.Embed(context.Background(), sb.String())
	assert.Equal(t, domain.SchemeHash, scheme)
	require.Len(t, vec, 7)
}

func TestEmbedAll_SingleSchemePerBatch(t *testing.T) {
	// A short batch from the service must not leave the record half
	// service-embedded: everything falls back together.
	e := New(&stubProvider{batch: [][]float32{{0.1}}}, 100)

	vecs, scheme := e.EmbedAll(context.Background(), []string{"first chunk text", "second chunk text"})
	assert.Equal(t, domain.SchemeHash, scheme)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 100)
	assert.Len(t, vecs[1], 100)
}

func TestEmbedAll_PrimaryPath(t *testing.T) {
	e := New(&stubProvider{vec: []float32{1, 0}}, 100)

	vecs, scheme := e.EmbedAll(context.Background(), []string{"a chunk", "another chunk"})
	assert.Equal(t, domain.SchemeOllama, scheme)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0}, vecs[0])
}

func TestEmbedAll_EmptyInput(t *testing.T) {
	e := New(&stubProvider{vec: []float32{1}}, 100)
	vecs, _ := e.EmbedAll(context.Background(), nil)
	assert.Nil(t, vecs)
}

func TestNew_DefaultDimension(t *testing.T) {
	e := New(&stubProvider{err: errors.New("down")}, 0)
	vec, _ := e.Embed(context.Background(), "anything at all")
	assert.Len(t, vec, DefaultFallbackDimension)
}
