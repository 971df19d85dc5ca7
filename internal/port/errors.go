package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrRecordNotFound     = errors.New("vector record not found")
	ErrEmptyText          = errors.New("empty text")
	ErrGenerationFailed   = errors.New("generation backend failed")
	ErrQueueClosed        = errors.New("inference queue closed")
	ErrEmbeddingBackend   = errors.New("embedding backend unavailable")
	ErrInvalidSubjectType = errors.New("invalid subject type")
)
