// Package retention expires finished jobs and their artifacts.
package retention

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/metrics"
)

// Janitor periodically removes terminal jobs older than a TTL.
type Janitor struct {
	jobStore article.JobStore
	sink     article.ArticleSink
	archives article.ArchiveStore
	clock    article.Clock
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// New creates a Janitor. A zero ttl disables sweeping.
func New(
	jobStore article.JobStore,
	sink article.ArticleSink,
	archives article.ArchiveStore,
	clock article.Clock,
	ttl time.Duration,
	interval time.Duration,
	logger *zap.Logger,
) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Janitor{
		jobStore: jobStore,
		sink:     sink,
		archives: archives,
		clock:    clock,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
	}
}

// Enabled reports whether the janitor has anything to do.
func (j *Janitor) Enabled() bool {
	return j.ttl > 0 && j.interval > 0
}

// Run sweeps on every tick until ctx ends.
func (j *Janitor) Run(ctx context.Context) {
	if !j.Enabled() {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.Sweep(ctx); n > 0 {
				j.logger.Info("expired jobs removed", zap.Int("count", n))
			}
		}
	}
}

// Sweep deletes expired terminal jobs once and returns how many were removed.
// Jobs still pending or processing are never touched.
func (j *Janitor) Sweep(ctx context.Context) int {
	if j.ttl <= 0 {
		return 0
	}
	cutoff := j.clock.Now().Add(-j.ttl)
	removed := 0
	for _, job := range j.jobStore.ListJobs(ctx) {
		if !job.Status.Terminal() || job.FinishedAt == nil || job.FinishedAt.After(cutoff) {
			continue
		}
		logger := j.logger.With(zap.String("job_id", job.ID))
		if job.ArchiveLocation != "" && j.archives != nil {
			if err := j.archives.Delete(ctx, job.ArchiveLocation); err != nil {
				logger.Warn("delete archive failed", zap.Error(err))
				continue
			}
		}
		if j.sink != nil {
			if err := j.sink.RemoveJob(ctx, job.ID); err != nil {
				logger.Warn("remove workspace failed", zap.Error(err))
				continue
			}
		}
		j.jobStore.DeleteJob(ctx, job.ID)
		removed++
	}
	metrics.ObserveSweep(removed)
	return removed
}
