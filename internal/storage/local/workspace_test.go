// Package local_test tests the local filesystem workspace and archive store.
package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		ws, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, ws)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "output")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})

	t.Run("BaseDirNotWritable", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}
		tempDir := t.TempDir()
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		require.NoError(t, os.Chmod(tempDir, 0o500))
		_, err := local.New(local.Config{BaseDir: tempDir})
		assert.Error(t, err)
		// #nosec G302 -- reverting permissions to allow cleanup in the test environment.
		require.NoError(t, os.Chmod(tempDir, 0o700))
	})
}

func TestFolderName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Article_1_garden_tools", local.FolderName(1, "garden tools"))
	assert.Equal(t, "Article_12_caf__bar___", local.FolderName(12, "café bar/.."))

	long := strings.Repeat("k", 80)
	name := local.FolderName(3, long)
	assert.Equal(t, "Article_3_"+strings.Repeat("k", 50), name)

	assert.NotEqual(t, local.FolderName(1, "same"), local.FolderName(2, "same"))
}

func TestSaveArticle(t *testing.T) {
	t.Parallel()

	ws, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	folder, err := ws.SaveArticle(ctx, "job-1", article.Record{Sequence: 2, Keyword: "seo tips", Text: "body"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.JobDir("job-1"), "Article_2_seo_tips"), folder)

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(filepath.Join(folder, local.ArticleFileName))
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))

	t.Run("RejectsTraversal", func(t *testing.T) {
		_, err := ws.SaveArticle(ctx, "../escape", article.Record{Sequence: 1, Keyword: "k"})
		assert.Error(t, err)
		_, err = ws.SaveArticle(ctx, "", article.Record{Sequence: 1, Keyword: "k"})
		assert.Error(t, err)
	})

	t.Run("RemoveJob", func(t *testing.T) {
		require.NoError(t, ws.RemoveJob(ctx, "job-1"))
		_, err := os.Stat(ws.JobDir("job-1"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestArchiveStore(t *testing.T) {
	t.Parallel()

	ws, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	store := local.NewArchiveStore(ws)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(ws.JobDir("job"), 0o750))
	zipPath := filepath.Join(ws.JobDir("job"), "articles.zip")
	require.NoError(t, os.WriteFile(zipPath, []byte("zip"), 0o600))

	uri, err := store.Publish(ctx, "job", zipPath)
	require.NoError(t, err)
	assert.Equal(t, "file://"+zipPath, uri)

	rc, err := store.Open(ctx, uri)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "zip", string(body))

	require.NoError(t, store.Delete(ctx, uri))
	_, err = store.Open(ctx, uri)
	assert.ErrorIs(t, err, article.ErrNotFound)
	require.NoError(t, store.Delete(ctx, uri))

	_, err = store.Open(ctx, "file:///etc/passwd")
	assert.Error(t, err)
	_, err = store.Publish(ctx, "job", "/etc/passwd")
	assert.Error(t, err)
}
