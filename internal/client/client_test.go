package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/hash/sha256"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestSubmit(t *testing.T) {
	bodies := make(chan article.GenerationRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("X-API-Key"))
		var req article.GenerationRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		bodies <- req
		writeJSON(t, w, http.StatusOK, article.Job{ID: "job-1", Status: article.JobStatusPending, TotalArticles: 2})
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", Options{APIKey: "service-key", Timeout: 5 * time.Second})
	require.NoError(t, err)

	job, err := c.Submit(context.Background(), article.GenerationRequest{
		Keywords:           []article.KeywordEntry{{Keyword: "k", URL: "https://example.com"}},
		APIProvider:        article.ProviderGroq,
		APIKey:             "gsk_secret",
		ArticlesPerKeyword: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, 2, job.TotalArticles)

	got := <-bodies
	assert.Equal(t, "gsk_secret", got.APIKey)
	assert.Equal(t, article.ProviderGroq, got.APIProvider)
}

func TestSubmitReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]string{"error": "keywords must not be empty"})
	}))
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), article.GenerationRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "keywords must not be empty", apiErr.Message)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
}

func TestStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/job/missing", r.URL.Path)
		writeJSON(t, w, http.StatusNotFound, map[string]string{"error": "job not found"})
	}))
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)

	_, err = c.Status(context.Background(), "missing")
	require.True(t, IsStatus(err, http.StatusNotFound))
	require.ErrorContains(t, err, "job not found")
}

func TestDownload(t *testing.T) {
	payload := []byte("PK\x03\x04zipbytes")
	digest, err := sha256.New().HashReader(bytes.NewReader(payload))
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/download/done":
			w.Header().Set("Content-Type", "application/zip")
			w.Header().Set("X-Archive-SHA256", digest)
			_, _ = w.Write(payload)
		case "/api/download/corrupt":
			w.Header().Set("Content-Type", "application/zip")
			w.Header().Set("X-Archive-SHA256", digest)
			_, _ = w.Write([]byte("truncated"))
		default:
			writeJSON(t, w, http.StatusBadRequest, map[string]string{"error": "articles not ready for download"})
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Download(context.Background(), "done", &buf))
	assert.Equal(t, payload, buf.Bytes())

	buf.Reset()
	err = c.Download(context.Background(), "pending", &buf)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "articles not ready for download", apiErr.Message)
	assert.Zero(t, buf.Len())

	err = c.Download(context.Background(), "corrupt", io.Discard)
	require.ErrorIs(t, err, ErrDigestMismatch)
}

// scriptedStatus serves the given jobs in order, repeating the last one.
type scriptedStatus struct {
	mu    sync.Mutex
	jobs  []article.Job
	calls int
}

func (s *scriptedStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	idx := s.calls
	if idx >= len(s.jobs) {
		idx = len(s.jobs) - 1
	}
	s.calls++
	job := s.jobs[idx]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(job)
}

func collect() (func(article.LogEntry), func() []article.LogEntry) {
	var mu sync.Mutex
	var entries []article.LogEntry
	return func(e article.LogEntry) {
			mu.Lock()
			defer mu.Unlock()
			entries = append(entries, e)
		}, func() []article.LogEntry {
			mu.Lock()
			defer mu.Unlock()
			return append([]article.LogEntry(nil), entries...)
		}
}

func messages(entries []article.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, string(e.Type)+": "+e.Message)
	}
	return out
}

func TestWatchReportsProgressUntilCompleted(t *testing.T) {
	status := &scriptedStatus{jobs: []article.Job{
		{ID: "j", Status: article.JobStatusPending, TotalArticles: 3},
		{ID: "j", Status: article.JobStatusProcessing, TotalArticles: 3},
		{ID: "j", Status: article.JobStatusProcessing, TotalArticles: 3, CompletedArticles: 1},
		{ID: "j", Status: article.JobStatusProcessing, TotalArticles: 3, CompletedArticles: 1},
		{ID: "j", Status: article.JobStatusProcessing, TotalArticles: 3, CompletedArticles: 2},
		{ID: "j", Status: article.JobStatusCompleted, TotalArticles: 3, CompletedArticles: 3},
	}}
	srv := httptest.NewServer(status)
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	onLog, logged := collect()

	job, err := c.Watch(context.Background(), "j", 5*time.Millisecond, onLog)
	require.NoError(t, err)
	assert.Equal(t, article.JobStatusCompleted, job.Status)
	assert.Equal(t, []string{
		"progress: ⋯ Generated article 1 of 3",
		"progress: ⋯ Generated article 2 of 3",
		"success: ✓ All 3 articles generated successfully!",
		"success: ✓ ZIP file created",
	}, messages(logged()))
}

func TestWatchReportsFailure(t *testing.T) {
	status := &scriptedStatus{jobs: []article.Job{
		{ID: "j", Status: article.JobStatusFailed, TotalArticles: 4, CompletedArticles: 1, FailureReason: "groq API error: status 401: bad key"},
	}}
	srv := httptest.NewServer(status)
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	onLog, logged := collect()

	job, err := c.Watch(context.Background(), "j", 5*time.Millisecond, onLog)
	require.NoError(t, err)
	assert.Equal(t, article.JobStatusFailed, job.Status)
	assert.Equal(t, []string{"error: ✗ Generation failed: groq API error: status 401: bad key"}, messages(logged()))
}

func TestWatchStopsOnStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{"error": "job not found"})
	}))
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	onLog, logged := collect()

	_, err = c.Watch(context.Background(), "gone", 5*time.Millisecond, onLog)
	require.True(t, IsStatus(err, http.StatusNotFound))
	assert.Equal(t, []string{"error: ✗ Error checking status"}, messages(logged()))
}

func TestWatchHonorsCancellation(t *testing.T) {
	status := &scriptedStatus{jobs: []article.Job{{ID: "j", Status: article.JobStatusProcessing, TotalArticles: 5}}}
	srv := httptest.NewServer(status)
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Watch(ctx, "j", 5*time.Millisecond, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("localhost", Options{})
	require.Error(t, err)
}
