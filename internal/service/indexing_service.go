package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/studylens/studylens/internal/chunker"
	"github.com/studylens/studylens/internal/domain"
	"github.com/studylens/studylens/internal/embedding"
	"github.com/studylens/studylens/internal/port"
)

// IndexingService turns raw document text into a persisted VectorRecord:
// chunk, embed every chunk in original order, assemble, save. Re-indexing
// a subject fully replaces its previous record.
type IndexingService struct {
	chunker  *chunker.Chunker
	embedder *embedding.Embedder
	store    port.RecordStore
}

// NewIndexingService creates the indexing service.
func NewIndexingService(ch *chunker.Chunker, em *embedding.Embedder, st port.RecordStore) *IndexingService {
	return &IndexingService{chunker: ch, embedder: em, store: st}
}

// Index chunks and embeds text for a subject and persists the record.
// sourceIDs is only meaningful for topic-groups. Concurrent Index calls
// for the same subject must be serialized by the caller.
func (s *IndexingService) Index(ctx context.Context, subjectID, subjectName, text string, subjectType domain.SubjectType, sourceIDs []string) (*domain.VectorRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, port.ErrEmptyText
	}
	switch subjectType {
	case domain.SubjectDocument, domain.SubjectTopicGroup:
	case "":
		subjectType = domain.SubjectDocument
	default:
		return nil, fmt.Errorf("%w: %q", port.ErrInvalidSubjectType, subjectType)
	}

	pieces := s.chunker.Split(text)
	vectors, scheme := s.embedder.EmbedAll(ctx, pieces)

	chunks := make([]domain.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = domain.Chunk{
			ID:      fmt.Sprintf("%s:%d", subjectID, i),
			Content: content,
			Vector:  vectors[i],
			Metadata: domain.ChunkMetadata{
				Index:     i,
				Length:    utf8.RuneCountInString(content),
				SourceTag: subjectType == domain.SubjectTopicGroup,
			},
		}
	}

	rec := &domain.VectorRecord{
		SubjectID:   subjectID,
		SubjectName: subjectName,
		SubjectType: subjectType,
		SourceIDs:   sourceIDs,
		Scheme:      scheme,
		Chunks:      chunks,
		IndexedAt:   time.Now().UTC(),
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist record %s: %w", subjectID, err)
	}

	slog.Info("subject indexed",
		"subject_id", subjectID, "subject_type", subjectType,
		"chunks", len(chunks), "scheme", scheme)
	return rec, nil
}

// Delete removes a subject's record. Idempotent.
func (s *IndexingService) Delete(ctx context.Context, subjectID string) error {
	if err := s.store.Delete(ctx, subjectID); err != nil {
		return err
	}
	slog.Info("subject deleted", "subject_id", subjectID)
	return nil
}

// Get returns a subject's record, or port.ErrRecordNotFound.
func (s *IndexingService) Get(ctx context.Context, subjectID string) (*domain.VectorRecord, error) {
	return s.store.Get(ctx, subjectID)
}
