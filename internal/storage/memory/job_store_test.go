package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/id/uuid"
)

type seqIDGen struct {
	mu  sync.Mutex
	ids []string
	n   int
}

func (g *seqIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) > 0 {
		id := g.ids[0]
		g.ids = g.ids[1:]
		return id, nil
	}
	g.n++
	return fmt.Sprintf("job-%d", g.n), nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewJobStore(&seqIDGen{}, fixedClock{now: time.Unix(100, 0)})
	ctx := context.Background()

	job, err := store.CreateJob(ctx, 4, article.ProviderGroq)
	require.NoError(t, err)
	require.Equal(t, "job-1", job.ID)
	require.Equal(t, article.JobStatusPending, job.Status)
	require.Equal(t, 4, job.TotalArticles)
	require.Zero(t, job.CompletedArticles)
	require.Empty(t, job.ArchiveLocation)
	require.Empty(t, job.FailureReason)

	processing := article.JobStatusProcessing
	store.UpdateJob(ctx, job.ID, article.JobUpdate{Status: &processing})
	two := 2
	store.UpdateJob(ctx, job.ID, article.JobUpdate{CompletedArticles: &two})

	got, ok := store.GetJob(ctx, job.ID)
	require.True(t, ok)
	require.Equal(t, article.JobStatusProcessing, got.Status)
	require.Equal(t, 2, got.CompletedArticles)
	require.Equal(t, 4, got.TotalArticles)
}

func TestJobStoreUnknownIDs(t *testing.T) {
	t.Parallel()

	store := NewJobStore(&seqIDGen{}, fixedClock{})
	ctx := context.Background()

	_, ok := store.GetJob(ctx, "missing")
	require.False(t, ok)

	failed := article.JobStatusFailed
	store.UpdateJob(ctx, "missing", article.JobUpdate{Status: &failed})
	_, ok = store.GetJob(ctx, "missing")
	require.False(t, ok, "update must not create records")
}

func TestJobStoreRetriesCollidingIDs(t *testing.T) {
	t.Parallel()

	gen := &seqIDGen{ids: []string{"dup", "dup", "fresh"}}
	store := NewJobStore(gen, fixedClock{})
	ctx := context.Background()

	first, err := store.CreateJob(ctx, 1, article.ProviderGemini)
	require.NoError(t, err)
	second, err := store.CreateJob(ctx, 1, article.ProviderGemini)
	require.NoError(t, err)
	require.Equal(t, "dup", first.ID)
	require.Equal(t, "fresh", second.ID)
}

func TestJobStoreConcurrentCreateUniqueIDs(t *testing.T) {
	t.Parallel()

	store := NewJobStore(&seqIDGen{}, fixedClock{})
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := store.CreateJob(ctx, 1, article.ProviderGemini)
			if err == nil {
				ids <- job.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	require.Len(t, seen, 50)
	require.Len(t, store.ListJobs(ctx), 50)
}

func TestJobStoreListAndDelete(t *testing.T) {
	t.Parallel()

	store := NewJobStore(&seqIDGen{}, fixedClock{now: time.Unix(1, 0)})
	ctx := context.Background()
	a, err := store.CreateJob(ctx, 1, article.ProviderGemini)
	require.NoError(t, err)
	_, err = store.CreateJob(ctx, 1, article.ProviderGemini)
	require.NoError(t, err)

	require.Len(t, store.ListJobs(ctx), 2)
	store.DeleteJob(ctx, a.ID)
	jobs := store.ListJobs(ctx)
	require.Len(t, jobs, 1)
	require.NotEqual(t, a.ID, jobs[0].ID)
}

func TestJobStoreListKeepsCreationOrderWithinSameInstant(t *testing.T) {
	t.Parallel()

	store := NewJobStore(uuid.NewUUIDGenerator(), fixedClock{now: time.Unix(1, 0)})
	ctx := context.Background()
	var want []string
	for i := 0; i < 30; i++ {
		job, err := store.CreateJob(ctx, 1, article.ProviderGroq)
		require.NoError(t, err)
		want = append(want, job.ID)
	}

	for i := 0; i < 20; i++ {
		jobs := store.ListJobs(ctx)
		got := make([]string, 0, len(jobs))
		for _, job := range jobs {
			got = append(got, job.ID)
		}
		require.Equal(t, want, got)
	}
}
