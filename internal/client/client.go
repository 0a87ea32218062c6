// Package client is a thin HTTP client for the article service. It submits
// batches, polls job status and downloads finished archives.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/hash/sha256"
)

// DefaultPollInterval matches the cadence of the browser client.
const DefaultPollInterval = time.Second

const (
	apiKeyHeader = "X-API-Key"
	digestHeader = "X-Archive-SHA256"
)

// ErrDigestMismatch is returned when a downloaded archive does not match the
// digest the server advertised.
var ErrDigestMismatch = errors.New("archive digest mismatch")

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Options tune the underlying HTTP client.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	// APIKey is the service key sent as X-API-Key, not the provider credential.
	APIKey string
}

// Client talks to one article service instance.
type Client struct {
	rc     *resty.Client
	hasher *sha256.Hasher
}

type errorBody struct {
	Error string `json:"error"`
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(u.String(), "/"))
	rc.SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	if opts.APIKey != "" {
		rc.SetHeader(apiKeyHeader, opts.APIKey)
	}
	return &Client{rc: rc, hasher: sha256.New()}, nil
}

// Submit posts a generation request and returns the pending job.
func (c *Client) Submit(ctx context.Context, req article.GenerationRequest) (article.Job, error) {
	var job article.Job
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&job).
		SetError(&errorBody{}).
		Post("/api/generate")
	if err != nil {
		return article.Job{}, fmt.Errorf("submit: %w", err)
	}
	if resp.IsError() {
		return article.Job{}, apiError(resp)
	}
	return job, nil
}

// Status fetches the current job record.
func (c *Client) Status(ctx context.Context, jobID string) (article.Job, error) {
	var job article.Job
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("id", jobID).
		SetResult(&job).
		SetError(&errorBody{}).
		Get("/api/job/{id}")
	if err != nil {
		return article.Job{}, fmt.Errorf("status: %w", err)
	}
	if resp.IsError() {
		return article.Job{}, apiError(resp)
	}
	return job, nil
}

// Download streams the archive of a completed job into w. When the server
// sends a digest the stream is verified against it.
func (c *Client) Download(ctx context.Context, jobID string, w io.Writer) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("id", jobID).
		SetHeader("Accept", "application/zip").
		SetDoNotParseResponse(true).
		Get("/api/download/{id}")
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	body := resp.RawBody()
	defer body.Close() //nolint:errcheck // response body

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		raw, _ := io.ReadAll(io.LimitReader(body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode(), Message: messageFrom(raw)}
	}
	want := resp.Header().Get(digestHeader)
	got, err := c.hasher.HashReader(io.TeeReader(body, w))
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if want != "" && !strings.EqualFold(want, got) {
		return fmt.Errorf("%w: got %s, want %s", ErrDigestMismatch, got, want)
	}
	return nil
}

// Watch polls a job until it reaches a terminal state, reporting progress
// through onLog. It returns the last job read. A failed status read ends the
// watch with that error.
func (c *Client) Watch(
	ctx context.Context,
	jobID string,
	interval time.Duration,
	onLog func(article.LogEntry),
) (article.Job, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if onLog == nil {
		onLog = func(article.LogEntry) {}
	}
	emit := func(typ article.LogType, format string, args ...any) {
		onLog(article.LogEntry{
			Timestamp: time.Now(),
			Message:   fmt.Sprintf(format, args...),
			Type:      typ,
		})
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastCompleted := 0
	for {
		select {
		case <-ctx.Done():
			return article.Job{}, ctx.Err()
		case <-ticker.C:
		}

		job, err := c.Status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return article.Job{}, ctx.Err()
			}
			emit(article.LogError, "✗ Error checking status")
			return article.Job{}, err
		}

		switch job.Status {
		case article.JobStatusCompleted:
			emit(article.LogSuccess, "✓ All %d articles generated successfully!", job.TotalArticles)
			emit(article.LogSuccess, "✓ ZIP file created")
			return job, nil
		case article.JobStatusFailed:
			emit(article.LogError, "✗ Generation failed: %s", job.FailureReason)
			return job, nil
		case article.JobStatusProcessing:
			if job.CompletedArticles > lastCompleted {
				lastCompleted = job.CompletedArticles
				emit(article.LogProgress, "⋯ Generated article %d of %d", job.CompletedArticles, job.TotalArticles)
			}
		}
	}
}

func apiError(resp *resty.Response) error {
	msg := ""
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		msg = body.Error
	}
	if msg == "" {
		msg = messageFrom(resp.Body())
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

func messageFrom(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return s
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
