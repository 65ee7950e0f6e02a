// Package worker provides the background consumer that drains the page-fetch
// queue and runs the ingestion pipeline, plus the scheduled fan-out that
// refills it.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/wod-ingestor/internal/logger"
	"github.com/jonesrussell/wod-ingestor/internal/models"
	"github.com/jonesrussell/wod-ingestor/internal/queue"
)

const (
	defaultPollTimeout = 5 * time.Second
	errorBackoff       = 2 * time.Second
)

// Fetcher is the slice of the WordPress client the worker needs.
type Fetcher interface {
	GetPosts(ctx context.Context, perPage, page int) ([]models.RawPost, error)
	TotalPages(ctx context.Context, perPage int) (int, error)
}

// Ingestor runs the pipeline for one post.
type Ingestor interface {
	IngestPost(ctx context.Context, post *models.RawPost) ([]models.SessionRecord, error)
}

// JobQueue is the slice of the queue the worker needs.
type JobQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
	Dequeue(ctx context.Context, timeout time.Duration) (queue.Job, queue.Receipt, bool, error)
	Ack(ctx context.Context, r queue.Receipt) error
	Requeue(ctx context.Context, r queue.Receipt) error
}

// Config holds worker options.
type Config struct {
	PollTimeout  time.Duration
	PostsPerPage int
	// Schedule is an optional cron expression; when set the worker refills
	// the queue on that schedule.
	Schedule string
}

// Worker consumes fetch jobs and feeds posts through the pipeline.
type Worker struct {
	fetcher  Fetcher
	ingestor Ingestor
	jobs     JobQueue
	logger   logger.Logger

	pollTimeout  time.Duration
	postsPerPage int
	schedule     string
	cron         *cron.Cron

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// New creates a worker.
func New(fetcher Fetcher, ingestor Ingestor, jobs JobQueue, cfg Config, log logger.Logger) *Worker {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.PostsPerPage <= 0 {
		cfg.PostsPerPage = 1
	}

	return &Worker{
		fetcher:      fetcher,
		ingestor:     ingestor,
		jobs:         jobs,
		logger:       log,
		pollTimeout:  cfg.PollTimeout,
		postsPerPage: cfg.PostsPerPage,
		schedule:     cfg.Schedule,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the consume loop and, when configured, the cron fan-out.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.schedule != "" {
		w.cron = cron.New()
		_, err := w.cron.AddFunc(w.schedule, func() {
			if err := w.EnqueueFetchJobs(ctx); err != nil {
				w.logger.Error("scheduled fan-out failed", logger.Error(err))
			}
		})
		if err != nil {
			return err
		}
		w.cron.Start()
		w.logger.Info("fetch schedule registered", logger.String("schedule", w.schedule))
	}

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("ingest worker started",
		logger.Duration("poll_timeout", w.pollTimeout),
		logger.Int("posts_per_page", w.postsPerPage),
	)
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	w.mu.Unlock()

	if w.cron != nil {
		w.cron.Stop()
	}
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("ingest worker stopped")
}

// EnqueueFetchJobs asks the API how many result pages exist and enqueues one
// job per page.
func (w *Worker) EnqueueFetchJobs(ctx context.Context) error {
	pages, err := w.fetcher.TotalPages(ctx, w.postsPerPage)
	if err != nil {
		return err
	}

	for page := 1; page <= pages; page++ {
		job := queue.Job{Page: page, PostsPerPage: w.postsPerPage}
		if err := w.jobs.Enqueue(ctx, job); err != nil {
			return err
		}
	}

	w.logger.Info("fetch jobs enqueued", logger.Int("pages", pages))
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		w.processOnce(ctx)
	}
}

// processOnce takes one job off the queue and runs every post on that page
// through the pipeline. The job is acknowledged only when every post
// succeeded; otherwise it goes back on the queue for a later retry, and the
// idempotency layer makes the replayed posts cheap.
func (w *Worker) processOnce(ctx context.Context) {
	job, receipt, ok, err := w.jobs.Dequeue(ctx, w.pollTimeout)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to dequeue job", logger.Error(err))
			time.Sleep(errorBackoff)
		}
		return
	}
	if !ok {
		return
	}

	log := w.logger.With(logger.Int("page", job.Page))

	posts, err := w.fetcher.GetPosts(ctx, job.PostsPerPage, job.Page)
	if err != nil {
		log.Error("failed to fetch posts for job, requeueing", logger.Error(err))
		if reqErr := w.jobs.Requeue(ctx, receipt); reqErr != nil {
			log.Error("failed to requeue job", logger.Error(reqErr))
		}
		return
	}

	failures := 0
	for i := range posts {
		if _, err := w.ingestor.IngestPost(ctx, &posts[i]); err != nil {
			failures++
			log.Error("failed to ingest post",
				logger.String("slug", posts[i].Slug),
				logger.Error(err),
			)
		}
	}

	if failures > 0 {
		log.Warn("job had failures, requeueing",
			logger.Int("failures", failures),
			logger.Int("posts", len(posts)),
		)
		if err := w.jobs.Requeue(ctx, receipt); err != nil {
			log.Error("failed to requeue job", logger.Error(err))
		}
		return
	}

	if err := w.jobs.Ack(ctx, receipt); err != nil {
		log.Error("failed to ack job", logger.Error(err))
		return
	}

	log.Info("job processed", logger.Int("posts", len(posts)))
}
