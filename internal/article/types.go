package article

import (
	"time"
)

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ProviderName selects a text-generation backend.
type ProviderName string

// Supported providers.
const (
	ProviderGemini ProviderName = "gemini"
	ProviderGroq   ProviderName = "groq"
)

// Job is the record tracked for each submitted batch.
type Job struct {
	ID                string       `json:"id"`
	Status            JobStatus    `json:"status"`
	Provider          ProviderName `json:"provider,omitempty"`
	TotalArticles     int          `json:"totalArticles"`
	CompletedArticles int          `json:"completedArticles"`
	ArchiveLocation   string       `json:"archiveLocation,omitempty"`
	ArchiveSHA256     string       `json:"archiveSha256,omitempty"`
	FailureReason     string       `json:"failureReason,omitempty"`
	SubmittedAt       time.Time    `json:"submittedAt"`
	StartedAt         *time.Time   `json:"startedAt,omitempty"`
	FinishedAt        *time.Time   `json:"finishedAt,omitempty"`
}

// JobUpdate carries a partial update. Nil fields are left untouched.
type JobUpdate struct {
	Status            *JobStatus
	CompletedArticles *int
	ArchiveLocation   *string
	ArchiveSHA256     *string
	FailureReason     *string
	StartedAt         *time.Time
	FinishedAt        *time.Time
}

// Apply merges the non-nil fields of u into job and returns the result.
func (u JobUpdate) Apply(job Job) Job {
	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.CompletedArticles != nil {
		job.CompletedArticles = *u.CompletedArticles
	}
	if u.ArchiveLocation != nil {
		job.ArchiveLocation = *u.ArchiveLocation
	}
	if u.ArchiveSHA256 != nil {
		job.ArchiveSHA256 = *u.ArchiveSHA256
	}
	if u.FailureReason != nil {
		job.FailureReason = *u.FailureReason
	}
	if u.StartedAt != nil {
		job.StartedAt = u.StartedAt
	}
	if u.FinishedAt != nil {
		job.FinishedAt = u.FinishedAt
	}
	return job
}

// KeywordEntry is one keyword/URL pair of a request.
type KeywordEntry struct {
	Keyword string `json:"keyword"`
	URL     string `json:"url"`
}

// GenerationRequest is the body accepted by the submit endpoint.
// APIKey is the provider credential; it is never copied into a Job.
type GenerationRequest struct {
	Keywords           []KeywordEntry `json:"keywords"`
	APIProvider        ProviderName   `json:"apiProvider"`
	APIKey             string         `json:"apiKey"`
	ArticlesPerKeyword int            `json:"articlesPerKeyword"`
}

// TotalArticles is the number of articles the request asks for.
func (r GenerationRequest) TotalArticles() int {
	return len(r.Keywords) * r.ArticlesPerKeyword
}

// Record is one generated and cleaned article.
type Record struct {
	Sequence int
	Keyword  string
	URL      string
	Text     string
}

// QueueItem wraps a job ready to run. It lives only in memory.
type QueueItem struct {
	JobID              string
	Keywords           []KeywordEntry
	Provider           ProviderName
	Credential         string
	ArticlesPerKeyword int
}

// LogType classifies client-side log entries.
type LogType string

// Log entry types rendered by the polling client.
const (
	LogInfo     LogType = "info"
	LogSuccess  LogType = "success"
	LogError    LogType = "error"
	LogProgress LogType = "progress"
)

// LogEntry is one line of the client progress log.
type LogEntry struct {
	Timestamp time.Time
	Message   string
	Type      LogType
}

// JobEvent is published when a job reaches a terminal state.
type JobEvent struct {
	JobID             string    `json:"jobId"`
	Status            JobStatus `json:"status"`
	TotalArticles     int       `json:"totalArticles"`
	CompletedArticles int       `json:"completedArticles"`
	ArchiveLocation   string    `json:"archiveLocation,omitempty"`
	ArchiveSHA256     string    `json:"archiveSha256,omitempty"`
	FailureReason     string    `json:"failureReason,omitempty"`
	FinishedAt        time.Time `json:"finishedAt"`
}
