package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/articlegen/internal/article"
)

const fileScheme = "file://"

// ArchiveStore leaves archives where the pipeline built them and serves them
// from disk.
type ArchiveStore struct {
	baseDir string
}

// NewArchiveStore creates a store that only serves files inside the workspace.
func NewArchiveStore(ws *Workspace) *ArchiveStore {
	return &ArchiveStore{baseDir: ws.BaseDir()}
}

// Publish returns a file:// URI for an archive already inside the workspace.
func (s *ArchiveStore) Publish(_ context.Context, _ string, localPath string) (string, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("resolve archive path: %w", err)
	}
	path, err := within(s.baseDir, abs)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat archive: %w", err)
	}
	return fileScheme + path, nil
}

// Open opens the archive behind a file:// URI.
func (s *ArchiveStore) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	path, err := s.pathFor(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) // #nosec G304 -- path validated against the workspace root.
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("archive %s: %w", path, article.ErrNotFound)
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return f, nil
}

// Delete removes the archive file; a missing file is not an error.
func (s *ArchiveStore) Delete(_ context.Context, uri string) error {
	path, err := s.pathFor(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove archive: %w", err)
	}
	return nil
}

func (s *ArchiveStore) pathFor(uri string) (string, error) {
	path, ok := strings.CutPrefix(uri, fileScheme)
	if !ok {
		return "", fmt.Errorf("unsupported uri %q", uri)
	}
	return within(s.baseDir, path)
}
