package memory

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/articlegen/internal/article"
)

func TestArchiveStorePublishOpenDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "articles.zip")
	require.NoError(t, os.WriteFile(path, []byte("zip-bytes"), 0o600))

	store := NewArchiveStore()
	uri, err := store.Publish(ctx, "job-1", path)
	require.NoError(t, err)
	require.Equal(t, "memory://job-1/articles.zip", uri)

	for i := 0; i < 2; i++ {
		rc, err := store.Open(ctx, uri)
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		require.Equal(t, "zip-bytes", string(body))
	}

	require.NoError(t, store.Delete(ctx, uri))
	_, err = store.Open(ctx, uri)
	require.ErrorIs(t, err, article.ErrNotFound)
}

func TestArchiveStoreErrors(t *testing.T) {
	t.Parallel()

	store := NewArchiveStore()
	_, err := store.Publish(context.Background(), "job", filepath.Join(t.TempDir(), "missing.zip"))
	require.Error(t, err)
	_, err = store.Open(context.Background(), "gs://bucket/x")
	require.Error(t, err)
}
