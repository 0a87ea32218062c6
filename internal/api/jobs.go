package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JakeFAU/articlegen/internal/article"
)

const (
	defaultJobLimit = 50
	maxJobLimit     = 500
)

// listJobs handles GET /api/jobs?status=&limit=&offset=. Jobs are ordered by
// submission time and never include request credentials.
func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r, defaultJobLimit, maxJobLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var status article.JobStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err = parseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	all := s.jobStore.ListJobs(r.Context())
	filtered := make([]article.Job, 0, len(all))
	for _, job := range all {
		if status != "" && job.Status != status {
			continue
		}
		filtered = append(filtered, job)
	}
	total := len(filtered)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  filtered[offset:end],
		"total": total,
	})
}

func parseStatus(raw string) (article.JobStatus, error) {
	switch st := article.JobStatus(strings.ToLower(raw)); st {
	case article.JobStatusPending, article.JobStatusProcessing, article.JobStatusCompleted, article.JobStatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("invalid status %q", raw)
	}
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	limit := def
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		limit = min(v, maxLimit)
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
		offset = v
	}
	return limit, offset, nil
}
