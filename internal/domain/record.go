package domain

import "time"

// SubjectType distinguishes the two units of indexing.
type SubjectType string

const (
	SubjectDocument   SubjectType = "document"
	SubjectTopicGroup SubjectType = "topic-group"
)

// EmbeddingScheme identifies how the vectors in a record were produced.
// Records produced by different schemes live in different similarity
// spaces and must not be compared against each other.
type EmbeddingScheme string

const (
	SchemeOllama EmbeddingScheme = "ollama"
	SchemeHash   EmbeddingScheme = "hash"
)

// ChunkMetadata carries positional information about a chunk.
type ChunkMetadata struct {
	Index     int  `json:"index"`
	Length    int  `json:"length"`
	SourceTag bool `json:"source_tag,omitempty"`
}

// Chunk is a bounded slice of document text stored with its vector.
// Immutable once created; owned by the VectorRecord that contains it.
type Chunk struct {
	ID       string        `json:"id"`
	Content  string        `json:"content"`
	Vector   []float32     `json:"vector"`
	Metadata ChunkMetadata `json:"metadata"`
}

// VectorRecord is the per-subject snapshot of indexed chunks. One record
// exists per document or topic-group, keyed by SubjectID, and is fully
// replaced on re-indexing.
type VectorRecord struct {
	SubjectID   string          `json:"subject_id"`
	SubjectName string          `json:"subject_name"`
	SubjectType SubjectType     `json:"subject_type"`
	SourceIDs   []string        `json:"source_ids,omitempty"`
	Scheme      EmbeddingScheme `json:"embedding_scheme"`
	Chunks      []Chunk         `json:"chunks"`
	IndexedAt   time.Time       `json:"indexed_at"`
}
