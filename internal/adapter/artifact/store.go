// Package artifact persists processed search results as JSON files.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"websift/internal/domain"
)

var _ domain.ArtifactStore = (*FileStore)(nil)

// FileStore writes one artifact per search into a caller-chosen directory.
type FileStore struct {
	logger *slog.Logger
	goos   string
}

// NewFileStore creates a FileStore.
func NewFileStore(logger *slog.Logger) *FileStore {
	return &FileStore{logger: logger, goos: runtime.GOOS}
}

// Prepare resolves dir to an absolute path and creates it with any missing
// parents. It is idempotent.
func (s *FileStore) Prepare(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", domain.NewDomainError("FileStore.Prepare", domain.ErrIO, err.Error())
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", domain.NewDomainError("FileStore.Prepare", domain.ErrIO, err.Error())
	}
	return abs, nil
}

// FileName returns the artifact name for a creation timestamp.
func (s *FileStore) FileName(timestamp string) string {
	if s.goos == "windows" {
		timestamp = strings.ReplaceAll(timestamp, ":", "-")
	}
	return "search-" + timestamp + ".json"
}

// Persist writes p as 2-space indented JSON to dir and returns the file
// path. An existing file is replaced only when the timestamp collides.
func (s *FileStore) Persist(ctx context.Context, dir string, p domain.ProcessedResults) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", domain.NewDomainError("FileStore.Persist", domain.ErrIO, fmt.Sprintf("marshal: %v", err))
	}

	path := filepath.Join(dir, s.FileName(p.Timestamp))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", domain.NewDomainError("FileStore.Persist", domain.ErrIO, err.Error())
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", domain.NewDomainError("FileStore.Persist", domain.ErrIO, err.Error())
	}

	s.logger.Debug("artifact written", "path", path, "results", len(p.Results))
	return path, nil
}

// Load reads an artifact written by Persist.
func (s *FileStore) Load(path string) (domain.ProcessedResults, error) {
	var p domain.ProcessedResults
	data, err := os.ReadFile(path)
	if err != nil {
		return p, domain.NewDomainError("FileStore.Load", domain.ErrIO, err.Error())
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, domain.NewDomainError("FileStore.Load", domain.ErrInvalidInput, fmt.Sprintf("parse %s: %v", filepath.Base(path), err))
	}
	return p, nil
}
