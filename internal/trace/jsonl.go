package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONLSink appends one compact JSON object per record, newline terminated.
// When the configured path is a directory the file is named
// {UTC-YYYYMMDD-HHMMSS}_{RUN_ID}.jsonl inside it; when a file, records
// append to it.
type JSONLSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewJSONLSink resolves the output path for the given run and opens it for
// appending.
func NewJSONLSink(path, runID string, now time.Time) (*JSONLSink, error) {
	resolved := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		name := fmt.Sprintf("%s_%s.jsonl", now.UTC().Format("20060102-150405"), runID)
		resolved = filepath.Join(path, name)
	}

	file, err := os.OpenFile(resolved, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace output %s: %w", resolved, err)
	}
	return &JSONLSink{path: resolved, file: file}, nil
}

// Path returns the resolved output file path.
func (s *JSONLSink) Path() string {
	return s.path
}

// Write serializes the record as a single line.
func (s *JSONLSink) Write(record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode trace record: %w", err)
	}
	line = append(line, '\n')
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("write trace record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
