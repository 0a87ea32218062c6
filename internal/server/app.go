// Package server builds the article service from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/articlegen/internal/api"
	"github.com/JakeFAU/articlegen/internal/archive"
	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/clock/system"
	"github.com/JakeFAU/articlegen/internal/config"
	"github.com/JakeFAU/articlegen/internal/dispatcher"
	"github.com/JakeFAU/articlegen/internal/hash/sha256"
	"github.com/JakeFAU/articlegen/internal/id/uuid"
	"github.com/JakeFAU/articlegen/internal/provider"
	"github.com/JakeFAU/articlegen/internal/provider/gemini"
	"github.com/JakeFAU/articlegen/internal/provider/groq"
	memorypublisher "github.com/JakeFAU/articlegen/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/articlegen/internal/publisher/pubsub"
	queuememory "github.com/JakeFAU/articlegen/internal/queue/memory"
	"github.com/JakeFAU/articlegen/internal/retention"
	gcsstorage "github.com/JakeFAU/articlegen/internal/storage/gcs"
	localstorage "github.com/JakeFAU/articlegen/internal/storage/local"
	memorystorage "github.com/JakeFAU/articlegen/internal/storage/memory"
	s3storage "github.com/JakeFAU/articlegen/internal/storage/s3"
	"github.com/JakeFAU/articlegen/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	jobStore  *memorystorage.JobStore
	workspace *localstorage.Workspace
	archives  article.ArchiveStore
	publisher article.Publisher
	registry  *provider.Registry
	queue     *queuememory.Queue
	dispatch  *dispatcher.Dispatcher
	janitor   *retention.Janitor
	apiServer *api.Server

	gcsClient    *storage.Client
	pubsubCloser interface{ Close() error }
}

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	publisher article.Publisher
	registry  *provider.Registry
}

// WithPublisher overrides the event publisher chosen from configuration.
func WithPublisher(p article.Publisher) Option {
	return func(o *buildOptions) { o.publisher = p }
}

// WithRegistry overrides the provider registry built from configuration.
func WithRegistry(r *provider.Registry) Option {
	return func(o *buildOptions) { o.registry = r }
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Int("workers", cfg.Generation.Workers),
		zap.Int("queue_depth", cfg.Generation.QueueDepth),
	)

	clock := system.New()
	app.jobStore = memorystorage.NewJobStore(uuid.NewUUIDGenerator(), clock)

	var err error
	app.workspace, err = localstorage.New(localstorage.Config{BaseDir: cfg.Storage.BaseDir})
	if err != nil {
		return nil, fmt.Errorf("workspace init failed: %w", err)
	}

	if app.archives, err = app.setupArchives(ctx); err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	app.publisher = o.publisher
	if app.publisher == nil {
		if app.publisher, err = app.setupPublisher(ctx); err != nil {
			app.closeInfrastructure()
			return nil, err
		}
	}

	app.registry = o.registry
	if app.registry == nil {
		app.registry = setupProviders(cfg)
	}
	logger.Info("providers registered", zap.Any("providers", app.registry.Names()))

	app.queue = queuememory.NewQueue(cfg.Generation.QueueDepth)
	builder := archive.NewBuilder()
	hasher := sha256.New()
	workerCfg := worker.Config{Topic: cfg.PubSub.TopicName}
	workers := make([]*worker.Worker, 0, cfg.Generation.Workers)
	for i := 0; i < cfg.Generation.Workers; i++ {
		workers = append(workers, worker.New(
			app.queue,
			app.jobStore,
			app.registry,
			app.workspace,
			builder,
			hasher,
			app.archives,
			app.publisher,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	app.dispatch = dispatcher.New(app.queue, workers, logger.Named("dispatcher"))

	app.janitor = retention.New(
		app.jobStore,
		app.workspace,
		app.archives,
		clock,
		cfg.RetentionTTL(),
		cfg.SweepInterval(),
		logger.Named("retention"),
	)

	app.apiServer = api.NewServer(
		app.jobStore,
		app.dispatch,
		app.registry,
		app.archives,
		clock,
		cfg,
		logger.Named("api"),
	)
	return app, nil
}

// Handler exposes the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP on the configured port until ctx ends.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, lis)
}

// Serve runs the workers, the janitor and the HTTP server on lis. On
// cancellation it stops accepting requests, lets the workers fail whatever
// is still in flight or queued, then releases infrastructure clients.
func (a *App) Serve(ctx context.Context, lis net.Listener) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Generation.Workers))
		a.dispatch.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if a.janitor.Enabled() {
			a.logger.Info("retention janitor started",
				zap.Duration("ttl", a.cfg.RetentionTTL()),
				zap.Duration("interval", a.cfg.SweepInterval()),
			)
		}
		a.janitor.Run(ctx)
	}()

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	wg.Wait()
	a.Close()

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// Close releases the queue and cloud clients.
func (a *App) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
	a.closeInfrastructure()
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	if a.pubsubCloser != nil {
		if err := a.pubsubCloser.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
		a.pubsubCloser = nil
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
		a.gcsClient = nil
	}
}

func (a *App) setupArchives(ctx context.Context) (article.ArchiveStore, error) {
	st := a.cfg.Storage
	switch st.Backend {
	case config.StorageGCS:
		a.logger.Info("using GCS archive store", zap.String("bucket", st.Bucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		store, err := gcsstorage.New(client, gcsstorage.Config{Bucket: st.Bucket, Prefix: st.Prefix})
		if err != nil {
			return nil, fmt.Errorf("gcs archive store init failed: %w", err)
		}
		return store, nil
	case config.StorageS3:
		a.logger.Info("using S3 archive store",
			zap.String("bucket", st.Bucket),
			zap.String("region", st.S3Region),
			zap.String("endpoint", st.S3Endpoint),
		)
		s3cfg := s3storage.Config{
			Bucket:   st.Bucket,
			Prefix:   st.Prefix,
			Region:   st.S3Region,
			Endpoint: st.S3Endpoint,
		}
		sess, err := s3storage.NewSession(s3cfg)
		if err != nil {
			return nil, err
		}
		store, err := s3storage.New(sess, s3cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 archive store init failed: %w", err)
		}
		return store, nil
	default:
		a.logger.Info("using local archive store", zap.String("path", a.workspace.BaseDir()))
		return localstorage.NewArchiveStore(a.workspace), nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (article.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	pub := gcppublisher.New(client)
	a.pubsubCloser = pub
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return pub, nil
}

func setupProviders(cfg config.Config) *provider.Registry {
	prompt := provider.Prompt{MinWords: cfg.Generation.MinWords, MaxWords: cfg.Generation.MaxWords}
	timeout := cfg.ProviderTimeout()

	reg := provider.NewRegistry()
	reg.Register(article.ProviderGemini, gemini.New(gemini.Config{
		BaseURL: cfg.Providers.Gemini.BaseURL,
		Model:   cfg.Providers.Gemini.Model,
		Timeout: timeout,
	}, prompt))
	reg.Register(article.ProviderGroq, groq.New(groq.Config{
		BaseURL:     cfg.Providers.Groq.BaseURL,
		Model:       cfg.Providers.Groq.Model,
		Temperature: cfg.Providers.Groq.Temperature,
		MaxTokens:   cfg.Providers.Groq.MaxTokens,
		Timeout:     timeout,
	}, prompt))
	return reg
}
