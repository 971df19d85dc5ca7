package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/studylens/studylens/internal/domain"
	"github.com/studylens/studylens/internal/port"
)

const (
	// DefaultTopK is the default result count for vector search.
	DefaultTopK = 5
	// DefaultMinSimilarity filters out near-noise matches.
	DefaultMinSimilarity = 0.05
)

// Engine ranks stored chunks against a query vector by cosine
// similarity. It reads records through the store on every call; nothing
// is cached between queries.
type Engine struct {
	store port.RecordStore
}

// NewEngine creates a search engine over the given record store.
func NewEngine(store port.RecordStore) *Engine {
	return &Engine{store: store}
}

// Search returns up to topK hits with similarity >= minSimilarity,
// ordered by descending similarity. An empty scopeSubjectID searches
// every record. Chunks whose vectors do not match the query width score
// 0 instead of erroring; that indicates mixed embedding schemes and is
// logged once per record.
func (e *Engine) Search(ctx context.Context, queryVector []float32, scopeSubjectID string, topK int, minSimilarity float64) ([]domain.SearchHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	records, err := e.candidates(ctx, scopeSubjectID)
	if err != nil {
		return nil, err
	}

	var hits []domain.SearchHit
	for _, rec := range records {
		mismatched := false
		for _, ch := range rec.Chunks {
			sim, ok := Cosine(queryVector, ch.Vector)
			if !ok {
				mismatched = true
				continue
			}
			if sim < minSimilarity {
				continue
			}
			hits = append(hits, domain.SearchHit{
				SubjectID:   rec.SubjectID,
				SubjectName: rec.SubjectName,
				ChunkID:     ch.ID,
				Content:     ch.Content,
				Similarity:  sim,
				Source:      domain.MatchVector,
				Metadata:    ch.Metadata,
			})
		}
		if mismatched {
			slog.Warn("vector dimension mismatch, record scored 0",
				"subject_id", rec.SubjectID, "scheme", rec.Scheme, "query_dim", len(queryVector))
		}
	}

	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (e *Engine) candidates(ctx context.Context, scopeSubjectID string) ([]*domain.VectorRecord, error) {
	if scopeSubjectID == "" {
		records, err := e.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		return records, nil
	}
	rec, err := e.store.Get(ctx, scopeSubjectID)
	if errors.Is(err, port.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", scopeSubjectID, err)
	}
	return []*domain.VectorRecord{rec}, nil
}

// sortHits orders by descending similarity with a deterministic
// tie-break on identity.
func sortHits(hits []domain.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if hits[i].SubjectID != hits[j].SubjectID {
			return hits[i].SubjectID < hits[j].SubjectID
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}

// Cosine computes cosine similarity between two vectors. It returns
// ok=false when the lengths differ, and similarity 0 when either vector
// has zero magnitude.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, true
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
