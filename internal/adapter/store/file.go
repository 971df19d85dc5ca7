package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/studylens/studylens/internal/domain"
	"github.com/studylens/studylens/internal/port"
)

// FileStore keeps one JSON snapshot per subject under a data directory.
// Save writes a temp file and renames it over the old snapshot, so a
// reader never observes a half-written record. A store-wide mutex
// serializes writers to the same subject; writers to different subjects
// only contend for the duration of the rename.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Save atomically replaces the subject's snapshot.
func (s *FileStore) Save(_ context.Context, rec *domain.VectorRecord) error {
	if rec.SubjectID == "" {
		return fmt.Errorf("save record: empty subject id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.SubjectID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(rec.SubjectID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("swap snapshot %s: %w", path, err)
	}
	return nil
}

// Get returns the subject's record, or ErrRecordNotFound. A snapshot
// that fails to parse is treated as absent after logging, so a scoped
// search degrades to zero hits instead of failing.
func (s *FileStore) Get(_ context.Context, subjectID string) (*domain.VectorRecord, error) {
	data, err := os.ReadFile(s.path(subjectID))
	if os.IsNotExist(err) {
		return nil, port.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot for %s: %w", subjectID, err)
	}
	var rec domain.VectorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Error("corrupt vector record, treating as absent", "subject_id", subjectID, "error", err)
		return nil, port.ErrRecordNotFound
	}
	if rec.SubjectID != subjectID {
		return nil, port.ErrRecordNotFound
	}
	return &rec, nil
}

// Delete removes the snapshot. Deleting an absent subject is a no-op.
func (s *FileStore) Delete(_ context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(subjectID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot for %s: %w", subjectID, err)
	}
	return nil
}

// List enumerates every readable snapshot, skipping corrupt files.
func (s *FileStore) List(_ context.Context) ([]*domain.VectorRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan data dir %s: %w", s.dir, err)
	}

	var records []*domain.VectorRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable snapshot", "path", path, "error", err)
			continue
		}
		var rec domain.VectorRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			slog.Error("skipping corrupt vector record", "path", path, "error", err)
			continue
		}
		records = append(records, &rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].SubjectID < records[j].SubjectID })
	return records, nil
}

func (s *FileStore) path(subjectID string) string {
	return filepath.Join(s.dir, encodeSubjectID(subjectID)+".json")
}

// encodeSubjectID maps a subject id to a file name injectively: safe
// bytes pass through, everything else (including the underscore, which
// introduces escapes) becomes "_xx" hex. Distinct ids never share a
// snapshot file.
func encodeSubjectID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}
