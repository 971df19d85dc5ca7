package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/studylens/studylens/internal/domain"
	"github.com/studylens/studylens/internal/port"
)

// PostgresStore keeps one row per subject with the chunk list serialized
// as JSONB. An upsert replaces the whole row, so the atomic-replace
// contract holds without caller-side locking.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, ensures the schema, and returns a
// store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS vector_records (
			subject_id       TEXT PRIMARY KEY,
			subject_name     TEXT NOT NULL,
			subject_type     TEXT NOT NULL,
			source_ids       TEXT[],
			embedding_scheme TEXT NOT NULL,
			chunks           JSONB NOT NULL,
			indexed_at       TIMESTAMPTZ NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save fully replaces any existing row for the subject.
func (s *PostgresStore) Save(ctx context.Context, rec *domain.VectorRecord) error {
	if rec.SubjectID == "" {
		return fmt.Errorf("save record: empty subject id")
	}
	chunks, err := json.Marshal(rec.Chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks for %s: %w", rec.SubjectID, err)
	}

	query := `
		INSERT INTO vector_records (subject_id, subject_name, subject_type, source_ids, embedding_scheme, chunks, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subject_id) DO UPDATE SET
			subject_name = EXCLUDED.subject_name,
			subject_type = EXCLUDED.subject_type,
			source_ids = EXCLUDED.source_ids,
			embedding_scheme = EXCLUDED.embedding_scheme,
			chunks = EXCLUDED.chunks,
			indexed_at = EXCLUDED.indexed_at`

	_, err = s.db.ExecContext(ctx, query,
		rec.SubjectID, rec.SubjectName, string(rec.SubjectType),
		pq.Array(rec.SourceIDs), string(rec.Scheme), chunks, rec.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("save record %s: %w", rec.SubjectID, err)
	}
	return nil
}

// Get returns the subject's record, or ErrRecordNotFound.
func (s *PostgresStore) Get(ctx context.Context, subjectID string) (*domain.VectorRecord, error) {
	query := `SELECT subject_id, subject_name, subject_type, source_ids, embedding_scheme, chunks, indexed_at
	          FROM vector_records WHERE subject_id = $1`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, subjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", subjectID, err)
	}
	return rec, nil
}

// Delete removes the subject's row. Deleting an absent subject is a no-op.
func (s *PostgresStore) Delete(ctx context.Context, subjectID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM vector_records WHERE subject_id = $1`, subjectID)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", subjectID, err)
	}
	return nil
}

// List enumerates every record, skipping rows whose chunk payload fails
// to parse.
func (s *PostgresStore) List(ctx context.Context) ([]*domain.VectorRecord, error) {
	query := `SELECT subject_id, subject_name, subject_type, source_ids, embedding_scheme, chunks, indexed_at
	          FROM vector_records ORDER BY subject_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*domain.VectorRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			slog.Error("skipping corrupt vector record row", "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.VectorRecord, error) {
	var rec domain.VectorRecord
	var subjectType, scheme string
	var chunks []byte
	if err := row.Scan(
		&rec.SubjectID, &rec.SubjectName, &subjectType,
		pq.Array(&rec.SourceIDs), &scheme, &chunks, &rec.IndexedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(chunks, &rec.Chunks); err != nil {
		return nil, fmt.Errorf("unmarshal chunks for %s: %w", rec.SubjectID, err)
	}
	rec.SubjectType = domain.SubjectType(subjectType)
	rec.Scheme = domain.EmbeddingScheme(scheme)
	return &rec, nil
}
