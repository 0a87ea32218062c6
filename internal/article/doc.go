// Package article defines the job, request and record types shared by the
// generation pipeline, the HTTP API, the polling client and the storage
// backends, plus the collaborator interfaces they are wired through.
package article
