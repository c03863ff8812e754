package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists reports as indented JSON documents on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a file store writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the report to the configured path, creating parent directories
// as needed. An existing file is overwritten.
func (s *FileStore) Save(rep *Report) error {
	if rep == nil {
		return fmt.Errorf("report cannot be nil")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Load reads a previously saved report back from disk.
func (s *FileStore) Load() (*Report, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rep, nil
}
