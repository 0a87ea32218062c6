// Package gcs provides an ArchiveStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/articlegen/internal/article"
)

const (
	scheme      = "gs://"
	contentType = "application/zip"
)

// Config captures the parameters required to store archives in GCS.
type Config struct {
	Bucket string
	Prefix string
}

// ArchiveStore uploads archives to a configured GCS bucket.
type ArchiveStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed archive store.
func New(client *storage.Client, cfg Config) (*ArchiveStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &ArchiveStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// ObjectName returns the object key used for a job's archive.
func (s *ArchiveStore) ObjectName(jobID string) string {
	return path.Join(s.prefix, jobID, "articles.zip")
}

// Publish uploads the archive at localPath and returns a gs:// URI.
func (s *ArchiveStore) Publish(ctx context.Context, jobID, localPath string) (string, error) {
	f, err := os.Open(localPath) // #nosec G304 -- path comes from the job workspace.
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	object := s.ObjectName(jobID)
	writer := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, f); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return scheme + s.bucket + "/" + object, nil
}

// Open streams an archive back from the bucket.
func (s *ArchiveStore) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("archive %s: %w", uri, article.ErrNotFound)
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return reader, nil
}

// Delete removes an archive object; a missing object is not an error.
func (s *ArchiveStore) Delete(ctx context.Context, uri string) error {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(bucket).Object(object).Delete(ctx); err != nil &&
		!errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ParseURI splits gs://bucket/object into its parts.
func ParseURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, scheme)
	if !ok {
		return "", "", fmt.Errorf("unsupported uri %q", uri)
	}
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed uri %q", uri)
	}
	return bucket, object, nil
}
