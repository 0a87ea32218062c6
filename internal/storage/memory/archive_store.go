package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/JakeFAU/articlegen/internal/article"
)

const uriScheme = "memory://"

// ArchiveStore keeps archive bytes in memory and returns pseudo URIs.
// It is a test double for the HTTP handler tests; the server never selects it.
type ArchiveStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewArchiveStore creates a new in-memory archive store.
func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{
		data: make(map[string][]byte),
	}
}

// Publish copies the archive at localPath into memory.
func (s *ArchiveStore) Publish(_ context.Context, jobID, localPath string) (string, error) {
	byteData, err := os.ReadFile(localPath) // #nosec G304 -- path comes from the job workspace.
	if err != nil {
		return "", fmt.Errorf("read archive: %w", err)
	}
	key := jobID + "/articles.zip"
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = byteData
	return uriScheme + key, nil
}

// Open returns a reader over a stored archive.
func (s *ArchiveStore) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	key, ok := strings.CutPrefix(uri, uriScheme)
	if !ok {
		return nil, fmt.Errorf("unsupported uri %q", uri)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	byteData, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("archive %s: %w", key, article.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(byteData)), nil
}

// Delete removes a stored archive; unknown uris are ignored.
func (s *ArchiveStore) Delete(_ context.Context, uri string) error {
	key, ok := strings.CutPrefix(uri, uriScheme)
	if !ok {
		return fmt.Errorf("unsupported uri %q", uri)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
