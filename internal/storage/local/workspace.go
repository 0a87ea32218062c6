// Package local implements the on-disk job workspace and a filesystem
// archive store.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/JakeFAU/articlegen/internal/article"
)

const (
	// ArticleFileName is the file written inside every article folder.
	ArticleFileName = "article.txt"

	maxKeywordLen = 50
)

var unsafeKeywordChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Config captures the parameters for the local filesystem workspace.
type Config struct {
	// BaseDir is the root directory holding one subdirectory per job.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Workspace writes article folders under BaseDir/<job id>/.
type Workspace struct {
	baseDir string
}

// New creates a workspace rooted at cfg.BaseDir, creating it when missing.
func New(cfg Config) (*Workspace, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	baseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	info, err := os.Stat(baseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(baseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Workspace{baseDir: baseDir}, nil
}

// BaseDir returns the absolute workspace root.
func (w *Workspace) BaseDir() string {
	return w.baseDir
}

// JobDir returns the directory owned by a job.
func (w *Workspace) JobDir(jobID string) string {
	return filepath.Join(w.baseDir, jobID)
}

// FolderName derives a collision-free, filesystem-safe folder name for an
// article: the sequence number keeps names unique within a job.
func FolderName(sequence int, keyword string) string {
	sanitized := unsafeKeywordChars.ReplaceAllString(keyword, "_")
	if len(sanitized) > maxKeywordLen {
		sanitized = sanitized[:maxKeywordLen]
	}
	return fmt.Sprintf("Article_%d_%s", sequence, sanitized)
}

// SaveArticle writes rec to its own folder and flushes it to disk before
// returning, so a caller that records progress afterwards never reports an
// article that is not on disk.
func (w *Workspace) SaveArticle(_ context.Context, jobID string, rec article.Record) (string, error) {
	jobDir, err := w.safeJobDir(jobID)
	if err != nil {
		return "", err
	}
	folder := filepath.Join(jobDir, FolderName(rec.Sequence, rec.Keyword))
	if err := os.MkdirAll(folder, 0o750); err != nil {
		return "", fmt.Errorf("create article folder: %w", err)
	}
	path := filepath.Join(folder, ArticleFileName)
	if err := writeFileSync(path, []byte(rec.Text)); err != nil {
		return "", err
	}
	// New directory entries are only durable once their parents are synced.
	for _, dir := range []string{folder, jobDir} {
		if err := syncDir(dir); err != nil {
			return "", err
		}
	}
	return folder, nil
}

// RemoveJob deletes a job directory and everything in it.
func (w *Workspace) RemoveJob(_ context.Context, jobID string) error {
	jobDir, err := w.safeJobDir(jobID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(jobDir); err != nil {
		return fmt.Errorf("remove job dir: %w", err)
	}
	return nil
}

func (w *Workspace) safeJobDir(jobID string) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", fmt.Errorf("job id is required")
	}
	return within(w.baseDir, filepath.Join(w.baseDir, jobID))
}

// within verifies path is strictly inside base to prevent path traversal.
func within(base, path string) (string, error) {
	cleanBase := filepath.Clean(base)
	cleanPath := filepath.Clean(path)
	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return cleanPath, nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 -- path built inside the workspace.
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir) // #nosec G304 -- dir built inside the workspace.
	if err != nil {
		return fmt.Errorf("failed to open dir: %w", err)
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return fmt.Errorf("failed to sync dir: %w", err)
	}
	if err := d.Close(); err != nil {
		return fmt.Errorf("failed to close dir: %w", err)
	}
	return nil
}
