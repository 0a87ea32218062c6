// Package worker implements the article generation pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/articlegen/internal/archive"
	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/cleaner"
	"github.com/JakeFAU/articlegen/internal/metrics"
)

// ReasonShutdown is recorded on jobs cut short by process shutdown.
const ReasonShutdown = "interrupted by shutdown"

const finalizeTimeout = 10 * time.Second

// Providers resolves a provider selector to an implementation.
type Providers interface {
	Get(name article.ProviderName) (article.Provider, error)
}

// Config controls Worker behavior.
type Config struct {
	// Topic receives terminal job events. Empty disables publishing.
	Topic string
}

// Worker consumes queue items and runs one job at a time.
type Worker struct {
	queue     article.Queue
	jobStore  article.JobStore
	providers Providers
	sink      article.ArticleSink
	builder   article.ArchiveBuilder
	hasher    article.Hasher
	archives  article.ArchiveStore
	publisher article.Publisher
	clock     article.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	queue article.Queue,
	jobStore article.JobStore,
	providers Providers,
	sink article.ArticleSink,
	builder article.ArchiveBuilder,
	hasher article.Hasher,
	archives article.ArchiveStore,
	publisher article.Publisher,
	clock article.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Worker{
		queue:     queue,
		jobStore:  jobStore,
		providers: providers,
		sink:      sink,
		builder:   builder,
		hasher:    hasher,
		archives:  archives,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming queue items until the context finishes or the
// queue is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, article.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

// Abandon fails a job that was queued but never started.
func (w *Worker) Abandon(ctx context.Context, item article.QueueItem, reason string) {
	w.fail(ctx, item.JobID, reason)
}

func (w *Worker) processJob(ctx context.Context, item article.QueueItem) {
	logger := w.logger.With(zap.String("job_id", item.JobID), zap.String("provider", string(item.Provider)))

	job, ok := w.jobStore.GetJob(ctx, item.JobID)
	if !ok {
		logger.Warn("job vanished before processing")
		return
	}
	if job.Status.Terminal() {
		logger.Warn("skipping job already in terminal state", zap.String("status", string(job.Status)))
		return
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", zap.Any("panic", r), zap.Stack("stack"))
			w.fail(ctx, item.JobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	started := w.clock.Now()
	status := article.JobStatusProcessing
	w.jobStore.UpdateJob(ctx, item.JobID, article.JobUpdate{Status: &status, StartedAt: &started})
	logger.Info("job started", zap.Int("total_articles", job.TotalArticles))

	result, err := w.generate(ctx, item, logger)
	if err != nil {
		reason := err.Error()
		if ctx.Err() != nil {
			reason = ReasonShutdown
		}
		logger.Error("job failed", zap.Error(err))
		w.fail(ctx, item.JobID, reason)
		return
	}
	w.complete(ctx, item.JobID, result)
	logger.Info("job completed", zap.String("archive", result.uri), zap.String("sha256", result.digest))
}

type packaged struct {
	uri    string
	digest string
}

// generate runs the per-article loop and packages the result.
func (w *Worker) generate(ctx context.Context, item article.QueueItem, logger *zap.Logger) (packaged, error) {
	prov, err := w.providers.Get(item.Provider)
	if err != nil {
		return packaged{}, fmt.Errorf("resolve provider: %w", err)
	}

	sequence := 0
	for _, entry := range item.Keywords {
		for rep := 1; rep <= item.ArticlesPerKeyword; rep++ {
			if err := ctx.Err(); err != nil {
				return packaged{}, fmt.Errorf("generation canceled: %w", err)
			}
			sequence++

			start := time.Now()
			text, err := prov.Generate(ctx, entry.Keyword, entry.URL, item.Credential)
			metrics.ObserveProviderCall(string(item.Provider), err, time.Since(start))
			if err != nil {
				var provErr *article.ProviderError
				if !errors.As(err, &provErr) {
					err = &article.ProviderError{Provider: item.Provider, Err: err}
				}
				return packaged{}, err
			}

			rec := article.Record{
				Sequence: sequence,
				Keyword:  entry.Keyword,
				URL:      entry.URL,
				Text:     cleaner.Clean(text),
			}
			if _, err := w.sink.SaveArticle(ctx, item.JobID, rec); err != nil {
				return packaged{}, fmt.Errorf("save article %d: %w", sequence, err)
			}
			completed := sequence
			w.jobStore.UpdateJob(ctx, item.JobID, article.JobUpdate{CompletedArticles: &completed})
			metrics.ObserveArticle(string(item.Provider))
			logger.Info("article generated",
				zap.Int("sequence", sequence),
				zap.String("keyword", entry.Keyword),
			)
		}
	}

	jobDir := w.sink.JobDir(item.JobID)
	local, err := w.builder.Build(ctx, jobDir, filepath.Join(jobDir, archive.FileName))
	if err != nil {
		return packaged{}, err
	}
	var result packaged
	if w.hasher != nil {
		if result.digest, err = w.hasher.HashFile(local); err != nil {
			return packaged{}, &article.PackagingError{Op: "digest", Err: err}
		}
	}
	result.uri, err = w.archives.Publish(ctx, item.JobID, local)
	if err != nil {
		var pkgErr *article.PackagingError
		if !errors.As(err, &pkgErr) {
			err = &article.PackagingError{Op: "publish", Err: err}
		}
		return packaged{}, err
	}
	return result, nil
}

func (w *Worker) complete(ctx context.Context, jobID string, result packaged) {
	ctx = context.WithoutCancel(ctx)
	finished := w.clock.Now()
	status := article.JobStatusCompleted
	w.jobStore.UpdateJob(ctx, jobID, article.JobUpdate{
		Status:          &status,
		ArchiveLocation: &result.uri,
		ArchiveSHA256:   &result.digest,
		FinishedAt:      &finished,
	})
	metrics.ObserveJob(string(status))
	w.publishEvent(ctx, jobID)
}

func (w *Worker) fail(ctx context.Context, jobID, reason string) {
	ctx = context.WithoutCancel(ctx)
	job, ok := w.jobStore.GetJob(ctx, jobID)
	if !ok || job.Status.Terminal() {
		return
	}
	finished := w.clock.Now()
	status := article.JobStatusFailed
	w.jobStore.UpdateJob(ctx, jobID, article.JobUpdate{
		Status:        &status,
		FailureReason: &reason,
		FinishedAt:    &finished,
	})
	metrics.ObserveJob(string(status))
	w.publishEvent(ctx, jobID)
}

func (w *Worker) publishEvent(ctx context.Context, jobID string) {
	if w.cfg.Topic == "" || w.publisher == nil {
		return
	}
	job, ok := w.jobStore.GetJob(ctx, jobID)
	if !ok {
		return
	}
	evt := article.JobEvent{
		JobID:             job.ID,
		Status:            job.Status,
		TotalArticles:     job.TotalArticles,
		CompletedArticles: job.CompletedArticles,
		ArchiveLocation:   job.ArchiveLocation,
		ArchiveSHA256:     job.ArchiveSHA256,
		FailureReason:     job.FailureReason,
	}
	if job.FinishedAt != nil {
		evt.FinishedAt = *job.FinishedAt
	}

	pubCtx, cancel := context.WithTimeout(ctx, finalizeTimeout)
	defer cancel()
	id, err := w.publisher.Publish(pubCtx, w.cfg.Topic, evt)
	if err != nil {
		w.logger.Error("publish job event failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	w.logger.Debug("job event published", zap.String("job_id", jobID), zap.String("message_id", id))
}
