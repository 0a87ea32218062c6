package article

import (
	"context"
	"io"
	"time"
)

// JobStore keeps job records for the lifetime of the process.
type JobStore interface {
	CreateJob(ctx context.Context, totalArticles int, provider ProviderName) (Job, error)
	GetJob(ctx context.Context, jobID string) (Job, bool)
	UpdateJob(ctx context.Context, jobID string, update JobUpdate)
	ListJobs(ctx context.Context) []Job
	DeleteJob(ctx context.Context, jobID string)
}

// Provider generates the raw text of one article.
type Provider interface {
	Generate(ctx context.Context, keyword, url, credential string) (string, error)
}

// ArticleSink persists records into a per-job working area.
type ArticleSink interface {
	JobDir(jobID string) string
	SaveArticle(ctx context.Context, jobID string, rec Record) (string, error)
	RemoveJob(ctx context.Context, jobID string) error
}

// ArchiveBuilder packages a directory of article folders into one file.
type ArchiveBuilder interface {
	Build(ctx context.Context, srcDir, destPath string) (string, error)
}

// Hasher digests a finished archive before it is published.
type Hasher interface {
	HashFile(path string) (string, error)
}

// ArchiveStore hosts finished archives and reads them back for download.
type ArchiveStore interface {
	Publish(ctx context.Context, jobID, localPath string) (string, error)
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	Delete(ctx context.Context, uri string) error
}

// Publisher pushes terminal job events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue provides enqueue/dequeue semantics for generation jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
