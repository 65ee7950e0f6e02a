// Package app wires configuration, logging, storage and the ingest
// pipeline into a runnable application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/wod-ingestor/internal/config"
	"github.com/jonesrussell/wod-ingestor/internal/idempotency"
	"github.com/jonesrussell/wod-ingestor/internal/ingest"
	"github.com/jonesrussell/wod-ingestor/internal/logger"
	"github.com/jonesrussell/wod-ingestor/internal/queue"
	redisclient "github.com/jonesrussell/wod-ingestor/internal/redis"
	"github.com/jonesrussell/wod-ingestor/internal/storage"
	"github.com/jonesrussell/wod-ingestor/internal/wordpress"
	"github.com/jonesrussell/wod-ingestor/internal/worker"
	"github.com/redis/go-redis/v9"
)

// Options control application construction.
type Options struct {
	ConfigPath string
	Version    string
}

// App holds the long-lived dependencies shared by every command.
type App struct {
	Config *config.Config
	Logger logger.Logger

	redis   *redis.Client
	objects *storage.GCSStore
	wp      *wordpress.Client
	jobs    *queue.Queue
	service *ingest.Service
}

// New builds the application from config. The caller must Close it.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log = log.With(
		logger.String("service", "wod-ingestor"),
		logger.String("version", opts.Version),
	)

	rdb, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	objects, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to open bucket %q: %w", cfg.Storage.Bucket, err)
	}

	var kv storage.KVStore
	if cfg.Idempotency.Enabled {
		kv = storage.NewRedisKV(rdb, cfg.Idempotency.KeySpace)
	} else {
		log.Warn("idempotency tracking disabled, writes will not be deduplicated")
	}
	coord := idempotency.NewCoordinator(kv, cfg.Idempotency.TTL(), log)

	wp := wordpress.NewClient(wordpress.Options{
		URL:      cfg.WordPress.URL,
		Username: cfg.WordPress.Username,
		Password: cfg.WordPress.Password,
		Timeout:  cfg.WordPress.Timeout,
	}, log)

	return &App{
		Config:  cfg,
		Logger:  log,
		redis:   rdb,
		objects: objects,
		wp:      wp,
		jobs:    queue.New(rdb, cfg.Queue.Name, log),
		service: ingest.NewService(objects, coord, log),
	}, nil
}

// IngestOnce fetches a single page of posts and runs each through the
// pipeline. This is the one-shot path used by the ingest command.
func (a *App) IngestOnce(ctx context.Context, page int) error {
	posts, err := a.wp.GetPosts(ctx, a.Config.WordPress.PostsPerPage, page)
	if err != nil {
		return fmt.Errorf("failed to fetch posts: %w", err)
	}
	if len(posts) == 0 {
		a.Logger.Info("no posts returned", logger.Int("page", page))
		return nil
	}

	var failed int
	for i := range posts {
		if _, err := a.service.IngestPost(ctx, &posts[i]); err != nil {
			a.Logger.Error("post ingest failed",
				logger.Int("post_id", posts[i].ID),
				logger.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d posts failed", failed, len(posts))
	}
	return nil
}

// EnqueueJobs fans out one fetch job per page of posts.
func (a *App) EnqueueJobs(ctx context.Context) error {
	w := a.newWorker()
	return w.EnqueueFetchJobs(ctx)
}

// RunWorker starts the queue consumer and blocks until the context is
// cancelled or a shutdown signal arrives.
func (a *App) RunWorker(ctx context.Context) error {
	w := a.newWorker()
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("shutdown signal received", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	w.Stop()
	return nil
}

func (a *App) newWorker() *worker.Worker {
	return worker.New(a.wp, a.service, a.jobs, worker.Config{
		PollTimeout:  a.Config.Queue.PollTimeout,
		PostsPerPage: a.Config.WordPress.PostsPerPage,
		Schedule:     a.Config.Worker.Schedule,
	}, a.Logger)
}

// Close releases the clients held by the application.
func (a *App) Close() {
	if a.objects != nil {
		if err := a.objects.Close(); err != nil {
			a.Logger.Warn("failed to close object store", logger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", logger.Error(err))
		}
	}
	_ = a.Logger.Sync()
}
