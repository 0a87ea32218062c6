// Package s3 provides an ArchiveStore backed by Amazon S3 or any
// S3-compatible endpoint (R2, MinIO).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/JakeFAU/articlegen/internal/article"
)

const (
	scheme      = "s3://"
	contentType = "application/zip"
)

// Config holds bucket and connection settings.
type Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the AWS endpoint, e.g. for R2 or MinIO.
	Endpoint string
}

// ArchiveStore uploads archives to an S3 bucket.
type ArchiveStore struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

// NewSession builds an AWS session for cfg. A custom endpoint implies
// path-style addressing.
func NewSession(cfg Config) (*session.Session, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}

// New creates an S3-backed archive store.
func New(sess *session.Session, cfg Config) (*ArchiveStore, error) {
	if sess == nil {
		return nil, fmt.Errorf("aws session is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client := s3.New(sess)
	return &ArchiveStore{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// ObjectKey returns the key used for a job's archive.
func (s *ArchiveStore) ObjectKey(jobID string) string {
	return path.Join(s.prefix, jobID, "articles.zip")
}

// Publish uploads the archive at localPath and returns an s3:// URI.
func (s *ArchiveStore) Publish(ctx context.Context, jobID, localPath string) (string, error) {
	f, err := os.Open(localPath) // #nosec G304 -- path comes from the job workspace.
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	key := s.ObjectKey(jobID)
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	return scheme + s.bucket + "/" + key, nil
}

// Open streams an archive back from the bucket.
func (s *ArchiveStore) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("archive %s: %w", uri, article.ErrNotFound)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

// Delete removes an archive object.
func (s *ArchiveStore) Delete(ctx context.Context, uri string) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ParseURI splits s3://bucket/key into its parts.
func ParseURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, scheme)
	if !ok {
		return "", "", fmt.Errorf("unsupported uri %q", uri)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed uri %q", uri)
	}
	return bucket, key, nil
}

func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aErr awserr.Error
	if errors.As(err, &aErr) {
		switch aErr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return true
		}
	}
	return false
}
