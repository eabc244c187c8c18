package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileJournal appends entries as JSON lines to a single file
type FileJournal struct {
	path string
	mu   sync.Mutex
}

// NewFileJournal creates a JSON-lines journal, creating its directory
func NewFileJournal(path string) (*FileJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	return &FileJournal{path: path}, nil
}

// Append writes e as one line
func (j *FileJournal) Append(ctx context.Context, e Entry) (Entry, error) {
	e, err := prepare(e)
	if err != nil {
		return e, err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return e, fmt.Errorf("failed to marshal entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return e, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return e, fmt.Errorf("failed to write entry: %w", err)
	}
	return e, nil
}

// Recent reads the file and returns up to limit entries, newest first.
// Lines that do not decode are skipped.
func (j *FileJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return newestFirst(entries, limit), nil
}

// Close is a no-op; the file is opened per append
func (j *FileJournal) Close() error { return nil }
