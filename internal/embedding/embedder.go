package embedding

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/studylens/studylens/internal/domain"
	"github.com/studylens/studylens/internal/port"
)

// DefaultFallbackDimension is the width of hash-bucket fallback vectors.
const DefaultFallbackDimension = 100

// Embedder converts text into fixed-width vectors. The primary path
// calls the external embedding service; on any failure it degrades to a
// deterministic hash-bucket vector. The fallback never fails.
//
// A single call covers a whole batch so that every chunk of a record is
// embedded with one scheme; mixed schemes within a record would break
// the equal-dimensionality invariant.
type Embedder struct {
	ai          port.AIProvider
	fallbackDim int
	tokenRe     *regexp.Regexp
}

// New creates an Embedder over the given AI provider.
func New(ai port.AIProvider, fallbackDim int) *Embedder {
	if fallbackDim <= 0 {
		fallbackDim = DefaultFallbackDimension
	}
	return &Embedder{
		ai:          ai,
		fallbackDim: fallbackDim,
		tokenRe:     regexp.MustCompile(`[\p{L}\p{N}]+`),
	}
}

// Embed vectorizes a single text, reporting the scheme used.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, domain.EmbeddingScheme) {
	vec, err := e.ai.Embed(ctx, text)
	if err == nil && len(vec) > 0 {
		return vec, domain.SchemeOllama
	}
	slog.Warn("embedding service unavailable, using hash fallback", "error", err)
	return e.hashVector(text), domain.SchemeHash
}

// EmbedAll vectorizes a batch of texts with a single scheme. If the
// service call fails or returns a short batch, every text is re-embedded
// with the hash fallback so the batch stays internally consistent.
func (e *Embedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, domain.EmbeddingScheme) {
	if len(texts) == 0 {
		return nil, domain.SchemeOllama
	}
	vecs, err := e.ai.EmbedBatch(ctx, texts)
	if err == nil && len(vecs) == len(texts) {
		return vecs, domain.SchemeOllama
	}
	if err != nil {
		slog.Warn("embedding batch failed, using hash fallback", "texts", len(texts), "error", err)
	} else {
		slog.Warn("embedding batch returned short result, using hash fallback",
			"want", len(texts), "got", len(vecs))
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.hashVector(t)
	}
	return out, domain.SchemeHash
}

// hashVector builds a term-frequency vector by hashing each distinct
// lowercase term into one of fallbackDim buckets, then L2-normalizing.
// An all-zero vector stays all-zero.
func (e *Embedder) hashVector(text string) []float32 {
	vec := make([]float32, e.fallbackDim)
	terms := e.tokenRe.FindAllString(strings.ToLower(text), -1)
	for _, term := range terms {
		h := fnv.New32a()
		h.Write([]byte(term))
		vec[int(h.Sum32()%uint32(e.fallbackDim))]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
