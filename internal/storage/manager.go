package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ngo-impact/impact-client/internal/models"
)

// Store holds files selected in the console until they are uploaded or discarded.
type Store interface {
	Save(name string, r io.Reader) (*models.StagedFile, error)
	Get(id string) (*models.StagedFile, error)
	Delete(id string) error
	Candidate(id string) (*models.CandidateFile, error)
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	mu         sync.RWMutex
	stagingDir string
	files      map[string]*models.StagedFile
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(stagingDir string) (*LocalStore, error) {
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	return &LocalStore{
		stagingDir: stagingDir,
		files:      make(map[string]*models.StagedFile),
	}, nil
}

// Save copies r to the staging directory under a fresh ID.
func (s *LocalStore) Save(name string, r io.Reader) (*models.StagedFile, error) {
	id := uuid.New().String()
	path := filepath.Join(s.stagingDir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.StagedFile{
		ID:       id,
		Name:     filepath.Base(name),
		Size:     size,
		StagedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info, nil
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.StagedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}
	return info, nil
}

// Delete removes a staged file.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("file not found: %s", id)
	}

	path := filepath.Join(s.stagingDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.files, id)
	return nil
}

// Candidate describes a staged file for validation and upload.
// The name is the one the browser sent; the path points at the staged copy.
func (s *LocalStore) Candidate(id string) (*models.CandidateFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}
	return models.NewCandidateFile(info.Name, info.Size, filepath.Join(s.stagingDir, id)), nil
}
