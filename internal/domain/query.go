package domain

// MatchSource tags which retrieval stage produced a hit.
type MatchSource string

const (
	MatchVector  MatchSource = "vector"
	MatchKeyword MatchSource = "keyword"
)

// SearchHit is a transient retrieval result consumed by the orchestrator.
type SearchHit struct {
	SubjectID   string        `json:"subject_id"`
	SubjectName string        `json:"subject_name"`
	ChunkID     string        `json:"chunk_id"`
	Content     string        `json:"content"`
	Similarity  float64       `json:"similarity"`
	Source      MatchSource   `json:"source"`
	Metadata    ChunkMetadata `json:"metadata"`
}

// QueryContext narrows a question to a subject and supplies learning
// state the prompt should reflect. All fields are optional.
type QueryContext struct {
	SubjectID     string   `json:"subject_id,omitempty"`
	LearningStage string   `json:"learning_stage,omitempty"`
	KeyPoints     []string `json:"key_points,omitempty"`
}

// Answer is the orchestrator's response to a question.
type Answer struct {
	Text           string      `json:"text"`
	RetrievedCount int         `json:"retrieved_count"`
	Sources        []SearchHit `json:"sources,omitempty"`
}
