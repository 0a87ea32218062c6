package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/articlegen/internal/article"
)

func newTestPublisher(t *testing.T) (*Publisher, *pstest.Server) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	_, err = client.CreateTopic(ctx, "job-events")
	require.NoError(t, err)

	pub := New(client)
	t.Cleanup(func() { _ = pub.Close() })
	return pub, srv
}

func TestPublishJobEvent(t *testing.T) {
	t.Parallel()

	pub, srv := newTestPublisher(t)
	evt := article.JobEvent{
		JobID:             "job-1",
		Status:            article.JobStatusCompleted,
		TotalArticles:     2,
		CompletedArticles: 2,
		ArchiveLocation:   "gs://bucket/job-1/articles.zip",
		FinishedAt:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	id, err := pub.Publish(context.Background(), "job-events", evt)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "job-1", msgs[0].Attributes["job_id"])
	require.Equal(t, "completed", msgs[0].Attributes["status"])

	var got article.JobEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, evt, got)
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "t", "x")
	require.Error(t, err)

	pub, _ := newTestPublisher(t)
	_, err = pub.Publish(context.Background(), "", "x")
	require.Error(t, err)
	_, err = pub.Publish(context.Background(), "job-events", make(chan int))
	require.Error(t, err)

	_, err = pub.Publish(context.Background(), "missing-topic", map[string]string{"k": "v"})
	require.Error(t, err)
}
