package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/diagramsync/pkg/errors"
)

// FileStore keeps one JSON file per entry in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based store.
// If baseDir is empty, defaults to ~/.config/diagramsync/history/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "diagramsync", "history")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) entryPath(id string) string {
	return filepath.Join(s.baseDir, filepath.Base(id)+".json")
}

func (s *FileStore) Save(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistory, err, "marshal history entry")
	}
	if err := os.WriteFile(s.entryPath(e.ID), data, 0600); err != nil {
		return errors.Wrap(errors.ErrCodeHistory, err, "write history file")
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(s.entryPath(id), id)
}

func (s *FileStore) read(path, id string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "read history file")
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "parse history entry %s", id)
	}
	return &e, nil
}

// List reads every entry file. Unreadable files are skipped.
func (s *FileStore) List(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "read history dir")
	}
	out := make([]Entry, 0, len(files))
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		e, err := s.read(filepath.Join(s.baseDir, f.Name()), f.Name())
		if err != nil {
			continue
		}
		out = append(out, *e)
	}
	sortNewest(out)
	return limitEntries(out, limit), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.entryPath(id)); err != nil {
		if os.IsNotExist(err) {
			return notFound(id)
		}
		return errors.Wrap(errors.ErrCodeHistory, err, "remove history file")
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the directory holding entry files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
