package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studylens/studylens/internal/domain"
	"github.com/studylens/studylens/internal/embedding"
	"github.com/studylens/studylens/internal/port"
	"github.com/studylens/studylens/internal/queue"
	"github.com/studylens/studylens/internal/search"
)

// KindRAGAnswer is the queue task kind for question answering.
const KindRAGAnswer = "rag-answer"

// minVectorHits is the retrieval floor below which the keyword fallback
// stage is triggered.
const minVectorHits = 2

// RAGOptions tune retrieval and generation.
type RAGOptions struct {
	TopK          int
	MinSimilarity float64
	KeywordTopK   int
	Generate      port.GenerateOptions
}

// RAGService composes retrieval and generation: embed the question,
// search, fall back to keywords when vector retrieval is thin, build an
// augmented prompt, and serialize the generation call through the
// inference queue.
type RAGService struct {
	embedder *embedding.Embedder
	engine   *search.Engine
	queue    *queue.Queue
	ai       port.AIProvider
	opts     RAGOptions
}

// NewRAGService creates the orchestrator. The queue must be the
// process-wide instance; the service never calls Generate outside it.
func NewRAGService(em *embedding.Embedder, en *search.Engine, q *queue.Queue, ai port.AIProvider, opts RAGOptions) *RAGService {
	if opts.TopK <= 0 {
		opts.TopK = search.DefaultTopK
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = search.DefaultMinSimilarity
	}
	if opts.KeywordTopK <= 0 {
		opts.KeywordTopK = search.DefaultKeywordTopK
	}
	return &RAGService{embedder: em, engine: en, queue: q, ai: ai, opts: opts}
}

// Answer retrieves content relevant to the question and generates a
// grounded response. Zero retrieved chunks is not an error: the prompt
// then states explicitly that no relevant content was found, so the
// backend can respond honestly instead of hallucinating.
func (s *RAGService) Answer(ctx context.Context, question string, qctx domain.QueryContext) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, port.ErrEmptyText
	}

	queryVector, scheme := s.embedder.Embed(ctx, question)
	slog.Info("RAG query", "question", question, "subject_id", qctx.SubjectID, "scheme", scheme)

	hits, err := s.engine.Search(ctx, queryVector, qctx.SubjectID, s.opts.TopK, s.opts.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if len(hits) < minVectorHits {
		keywordHits, err := s.engine.KeywordSearch(ctx, question, qctx.SubjectID, s.opts.KeywordTopK)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
		hits = search.MergeHits(hits, keywordHits)
	}

	prompt := BuildPrompt(question, qctx, hits)

	text, err := s.queue.Do(ctx, KindRAGAnswer, func(runCtx context.Context) (string, error) {
		return s.ai.Generate(runCtx, prompt, s.opts.Generate)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrGenerationFailed, err)
	}

	return &domain.Answer{
		Text:           text,
		RetrievedCount: len(hits),
		Sources:        hits,
	}, nil
}
