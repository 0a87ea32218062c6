package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/config"
	"github.com/JakeFAU/articlegen/internal/logging"
	"github.com/JakeFAU/articlegen/internal/metrics"
)

// ReasonQueueUnavailable is recorded on jobs the queue could not accept.
const ReasonQueueUnavailable = "job queue unavailable"

// ArchiveDigestHeader carries the hex SHA-256 of a downloaded archive.
const ArchiveDigestHeader = "X-Archive-SHA256"

const (
	maxRequestBytes = 1 << 20
	requestTimeout  = 60 * time.Second
)

// Enqueuer hands accepted jobs to the worker pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, item article.QueueItem, timeout time.Duration) error
}

// ProviderSet reports which provider selectors are available.
type ProviderSet interface {
	Known(name article.ProviderName) bool
}

// Server wires HTTP handlers to the job store and worker queue.
type Server struct {
	router    chi.Router
	jobStore  article.JobStore
	enqueuer  Enqueuer
	providers ProviderSet
	archives  article.ArchiveStore
	clock     article.Clock
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	jobStore article.JobStore,
	enqueuer Enqueuer,
	providers ProviderSet,
	archives article.ArchiveStore,
	clock article.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		jobStore:  jobStore,
		enqueuer:  enqueuer,
		providers: providers,
		archives:  archives,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.With(timeoutMiddleware(requestTimeout)).Post("/generate", s.submitJob)
		r.With(timeoutMiddleware(requestTimeout)).Get("/job/{id}", s.getJob)
		r.With(timeoutMiddleware(requestTimeout)).Get("/jobs", s.listJobs)
		r.Get("/download/{id}", s.downloadArchive)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.jobStore == nil || s.enqueuer == nil || s.archives == nil {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req article.GenerationRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := req.Validate(s.cfg.Generation.MaxArticlesPerKeyword, s.providers.Known); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	job, err := s.jobStore.CreateJob(ctx, req.TotalArticles(), req.APIProvider)
	if err != nil {
		s.logger.Error("create job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	logger := s.logger.With(
		zap.String("job_id", job.ID),
		zap.String("request_id", requestIDFromContext(ctx)),
	)

	item := article.QueueItem{
		JobID:              job.ID,
		Keywords:           req.Keywords,
		Provider:           req.APIProvider,
		Credential:         req.APIKey,
		ArticlesPerKeyword: req.ArticlesPerKeyword,
	}
	if err := s.enqueuer.Enqueue(ctx, item, s.cfg.EnqueueTimeout()); err != nil {
		logger.Warn("enqueue job failed", zap.Error(err))
		s.failJob(ctx, job.ID, ReasonQueueUnavailable)
		writeError(w, http.StatusServiceUnavailable, ReasonQueueUnavailable)
		return
	}

	logger.Info("job submitted",
		zap.String("provider", string(req.APIProvider)),
		zap.Int("keywords", len(req.Keywords)),
		zap.Int("total_articles", job.TotalArticles),
		logging.Credential("api_key", req.APIKey),
	)
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobStore.GetJob(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) downloadArchive(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, ok := s.jobStore.GetJob(r.Context(), jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != article.JobStatusCompleted || job.ArchiveLocation == "" {
		writeError(w, http.StatusBadRequest, "articles not ready for download")
		return
	}

	rc, err := s.archives.Open(r.Context(), job.ArchiveLocation)
	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive not found")
			return
		}
		s.logger.Error("open archive failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to open archive")
		return
	}
	defer rc.Close() //nolint:errcheck // read-only stream

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="articles.zip"`)
	if job.ArchiveSHA256 != "" {
		w.Header().Set(ArchiveDigestHeader, job.ArchiveSHA256)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("stream archive failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *Server) failJob(ctx context.Context, jobID, reason string) {
	status := article.JobStatusFailed
	finished := s.clock.Now()
	s.jobStore.UpdateJob(context.WithoutCancel(ctx), jobID, article.JobUpdate{
		Status:        &status,
		FailureReason: &reason,
		FinishedAt:    &finished,
	})
	metrics.ObserveJob(string(status))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
