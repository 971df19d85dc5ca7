package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studylens/studylens/internal/adapter/store"
	"github.com/studylens/studylens/internal/chunker"
	"github.com/studylens/studylens/internal/domain"
	"github.com/studylens/studylens/internal/embedding"
	"github.com/studylens/studylens/internal/port"
	"github.com/studylens/studylens/internal/queue"
	"github.com/studylens/studylens/internal/search"
)

// fakeAI forces the hash-embedding fallback (embedding service "down")
// and serves canned generations while capturing prompts.
type fakeAI struct {
	mu          sync.Mutex
	prompts     []string
	generate    func(prompt string) (string, error)
	generateErr error
}

func (f *fakeAI) ModelName() string { return "fake" }

func (f *fakeAI) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding service offline")
}

func (f *fakeAI) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding service offline")
}

func (f *fakeAI) Generate(_ context.Context, prompt string, _ port.GenerateOptions) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.generateErr != nil {
		return "", f.generateErr
	}
	if f.generate != nil {
		return f.generate(prompt)
	}
	return "ok", nil
}

func (f *fakeAI) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func newTestStack(t *testing.T, ai *fakeAI) (*IndexingService, *RAGService) {
	t.Helper()
	fileStore, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	q := queue.New(16, 0)
	t.Cleanup(q.Close)

	em := embedding.New(ai, 100)
	en := search.NewEngine(fileStore)
	indexing := NewIndexingService(chunker.New(500, 50), em, fileStore)
	rag := NewRAGService(em, en, q, ai, RAGOptions{})
	return indexing, rag
}

func TestAnswer_WarrantyEndToEnd(t *testing.T) {
	ai := &fakeAI{generate: func(prompt string) (string, error) {
		if !strings.Contains(prompt, "24 months") {
			return "", errors.New("retrieved material missing from prompt")
		}
		return "According to the manual, the warranty period is 24 months.", nil
	}}
	indexing, rag := newTestStack(t, ai)
	ctx := context.Background()

	text := "The warranty period is 24 months for industrial equipment. Regular maintenance every six months keeps the coverage valid."
	_, err := indexing.Index(ctx, "manual-1", "Equipment Manual", text, domain.SubjectDocument, nil)
	require.NoError(t, err)

	answer, err := rag.Answer(ctx, "how long is the warranty?", domain.QueryContext{})
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "24 months")
	require.GreaterOrEqual(t, answer.RetrievedCount, 1)
	require.NotEmpty(t, answer.Sources)
	assert.Contains(t, answer.Sources[0].Content, "24 months")
	assert.Greater(t, answer.Sources[0].Similarity, search.DefaultMinSimilarity)
}

func TestAnswer_EmptyStoreIsHonest(t *testing.T) {
	ai := &fakeAI{generate: func(string) (string, error) {
		return "Your indexed documents do not cover this question.", nil
	}}
	_, rag := newTestStack(t, ai)

	answer, err := rag.Answer(context.Background(), "what is quantum entanglement?", domain.QueryContext{})
	require.NoError(t, err, "an empty store is a valid zero-result state, not an error")

	assert.Zero(t, answer.RetrievedCount)
	assert.Empty(t, answer.Sources)
	assert.Contains(t, ai.lastPrompt(), "No relevant study material was found")
}

func TestAnswer_GenerationFailureSurfacesAndQueueSurvives(t *testing.T) {
	ai := &fakeAI{generateErr: errors.New("backend timeout")}
	_, rag := newTestStack(t, ai)
	ctx := context.Background()

	_, err := rag.Answer(ctx, "any question at all?", domain.QueryContext{})
	assert.ErrorIs(t, err, port.ErrGenerationFailed)

	ai.generateErr = nil
	answer, err := rag.Answer(ctx, "any question at all?", domain.QueryContext{})
	require.NoError(t, err, "a failed task must not poison the queue")
	assert.NotEmpty(t, answer.Text)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	_, rag := newTestStack(t, &fakeAI{})
	_, err := rag.Answer(context.Background(), "   ", domain.QueryContext{})
	assert.ErrorIs(t, err, port.ErrEmptyText)
}

func TestAnswer_ScopedToDeletedSubjectFindsNothing(t *testing.T) {
	ai := &fakeAI{}
	indexing, rag := newTestStack(t, ai)
	ctx := context.Background()

	text := "Cell membranes regulate transport through selective permeability and embedded proteins."
	_, err := indexing.Index(ctx, "bio-1", "Biology Notes", text, domain.SubjectDocument, nil)
	require.NoError(t, err)
	require.NoError(t, indexing.Delete(ctx, "bio-1"))

	answer, err := rag.Answer(ctx, "how do membranes regulate transport?", domain.QueryContext{SubjectID: "bio-1"})
	require.NoError(t, err)
	assert.Zero(t, answer.RetrievedCount)
}

func TestIndex_ReindexReplacesChunks(t *testing.T) {
	indexing, _ := newTestStack(t, &fakeAI{})
	ctx := context.Background()

	_, err := indexing.Index(ctx, "doc-1", "Doc", "Original content about thermodynamics and entropy in closed systems.", domain.SubjectDocument, nil)
	require.NoError(t, err)

	_, err = indexing.Index(ctx, "doc-1", "Doc", "Replacement content about electromagnetism and induction coils.", domain.SubjectDocument, nil)
	require.NoError(t, err)

	rec, err := indexing.Get(ctx, "doc-1")
	require.NoError(t, err)
	for _, ch := range rec.Chunks {
		assert.NotContains(t, ch.Content, "thermodynamics")
	}
}

func TestIndex_TopicGroup(t *testing.T) {
	indexing, _ := newTestStack(t, &fakeAI{})
	ctx := context.Background()

	rec, err := indexing.Index(ctx, "group-1", "Physics Unit",
		"Merged material from several documents covering mechanics and waves in detail.",
		domain.SubjectTopicGroup, []string{"doc-1", "doc-2"})
	require.NoError(t, err)

	assert.Equal(t, domain.SubjectTopicGroup, rec.SubjectType)
	assert.Equal(t, []string{"doc-1", "doc-2"}, rec.SourceIDs)
	require.NotEmpty(t, rec.Chunks)
	assert.True(t, rec.Chunks[0].Metadata.SourceTag)
}

func TestIndex_EmptyText(t *testing.T) {
	indexing, _ := newTestStack(t, &fakeAI{})
	_, err := indexing.Index(context.Background(), "doc-1", "Doc", "  \n ", domain.SubjectDocument, nil)
	assert.ErrorIs(t, err, port.ErrEmptyText)
}

func TestIndex_InvalidSubjectType(t *testing.T) {
	indexing, _ := newTestStack(t, &fakeAI{})
	_, err := indexing.Index(context.Background(), "doc-1", "Doc", "Some perfectly valid content here.", "notebook", nil)
	assert.ErrorIs(t, err, port.ErrInvalidSubjectType)
}
