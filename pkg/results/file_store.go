package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/google/uuid"
)

const (
	jsonExt       = ".json"
	compressedExt = ".json.sz"
)

// FileStore keeps one JSON file per report, snappy-compressed when requested.
type FileStore struct {
	dir      string
	compress bool
	mu       sync.RWMutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string, compress bool) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &FileStore{dir: dir, compress: compress}, nil
}

// Path returns the file a report with the given id is written to.
func (s *FileStore) Path(id uuid.UUID) string {
	ext := jsonExt
	if s.compress {
		ext = compressedExt
	}
	return filepath.Join(s.dir, id.String()+ext)
}

// Save writes r atomically through a temporary file.
func (s *FileStore) Save(_ context.Context, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if s.compress {
		data = snappy.Encode(nil, data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(r.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Get reads a report in either format.
func (s *FileStore) Get(_ context.Context, id uuid.UUID) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ext := range []string{jsonExt, compressedExt} {
		r, err := readReport(filepath.Join(s.dir, id.String()+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return r, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List reads every report in the directory.
func (s *FileStore) List(_ context.Context) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	var out []*Report
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, jsonExt) || strings.HasSuffix(name, compressedExt)) {
			continue
		}
		r, err := readReport(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// Ping checks that the report directory still exists.
func (s *FileStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func readReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, compressedExt) {
		if data, err = snappy.Decode(nil, data); err != nil {
			return nil, fmt.Errorf("failed to decompress %s: %w", filepath.Base(path), err)
		}
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return &r, nil
}
