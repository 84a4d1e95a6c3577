// Package logstore implements the append-only evaluation log as a
// line-delimited JSON file: each record is self-describing and
// independently parseable, and a truncated trailing record never
// prevents reading the well-formed records before it.
package logstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/evorag-ai/evorag/internal/domain"
)

// FileStore is the durable, idempotent evaluation log. interaction_id
// is the natural key; the first write for a key wins and later writes
// are no-ops. Safe for concurrent use by multiple judge workers in one
// process; cross-process writers need separate files.
type FileStore struct {
	mu   sync.Mutex
	path string
	file *os.File
	seen map[string]struct{}
}

// Open opens (or creates) the log at path and rebuilds the idempotency
// index from the records already on disk.
func Open(path string) (*FileStore, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open evaluation log %s: %w", path, err)
	}

	if err := sealTornTail(file); err != nil {
		file.Close()
		return nil, err
	}

	s := &FileStore{
		path: path,
		file: file,
		seen: make(map[string]struct{}),
	}

	records, err := readAll(path)
	if err != nil {
		file.Close()
		return nil, err
	}
	for _, r := range records {
		s.seen[r.InteractionID] = struct{}{}
	}

	return s, nil
}

// Append durably writes one judgment. A result whose interaction_id is
// already present is a no-op, not an error.
func (s *FileStore) Append(ctx context.Context, result *domain.EvaluationResult) error {
	if result.InteractionID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "evaluation result is missing interaction_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[result.InteractionID]; ok {
		return nil
	}

	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation result: %w", err)
	}
	line = append(line, '\n')

	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("failed to append evaluation result: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync evaluation log: %w", err)
	}

	s.seen[result.InteractionID] = struct{}{}
	return nil
}

// Iterate returns up to limit records in append order. Re-reading with
// no interleaved writes reproduces the same sequence.
func (s *FileStore) Iterate(ctx context.Context, limit int) ([]*domain.EvaluationResult, error) {
	records, err := readAll(s.path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// GetByInteractionID fetches one judgment.
func (s *FileStore) GetByInteractionID(ctx context.Context, interactionID string) (*domain.EvaluationResult, error) {
	records, err := readAll(s.path)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.InteractionID == interactionID {
			return r, nil
		}
	}
	return nil, domain.ErrEvaluationNotFound
}

// Path returns the on-disk location of the log.
func (s *FileStore) Path() string {
	return s.path
}

// Close releases the underlying file handle.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// sealTornTail terminates a file whose final record lost its newline in
// a crash, so the next append starts on a fresh line instead of merging
// into the torn record.
func sealTornTail(file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat evaluation log: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}

	tail := make([]byte, 1)
	if _, err := file.ReadAt(tail, info.Size()-1); err != nil {
		return fmt.Errorf("failed to inspect evaluation log tail: %w", err)
	}
	if tail[0] == '\n' {
		return nil
	}
	if _, err := file.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("failed to terminate torn evaluation log record: %w", err)
	}
	return file.Sync()
}

func readAll(path string) ([]*domain.EvaluationResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read evaluation log %s: %w", path, err)
	}
	defer file.Close()

	var records []*domain.EvaluationResult
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r domain.EvaluationResult
		if err := json.Unmarshal(line, &r); err != nil {
			// A torn write from a crash mid-append; preceding records
			// stay readable.
			log.Printf("evaluation log %s: skipping malformed record at line %d: %v", path, lineNo, err)
			continue
		}
		records = append(records, &r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan evaluation log %s: %w", path, err)
	}
	return records, nil
}
