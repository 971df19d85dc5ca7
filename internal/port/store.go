package port

import (
	"context"

	"github.com/studylens/studylens/internal/domain"
)

// RecordStore persists one VectorRecord per subject. Records are
// independent: operations on different subjects never contend, and Save
// fully replaces any existing record for the same subject atomically.
type RecordStore interface {
	// Save persists the record, replacing any existing record for the
	// same subject id. A partially written record must never be visible.
	Save(ctx context.Context, rec *domain.VectorRecord) error

	// Get returns the record for a subject, or ErrRecordNotFound.
	Get(ctx context.Context, subjectID string) (*domain.VectorRecord, error)

	// Delete removes the record. Deleting an absent subject is a no-op.
	Delete(ctx context.Context, subjectID string) error

	// List enumerates every readable record. Corrupt records are skipped,
	// not fatal.
	List(ctx context.Context) ([]*domain.VectorRecord, error)
}
