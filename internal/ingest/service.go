// Package ingest wires the segmentation pipeline to the durable stores: raw
// post archival, record building, and the idempotent weekly write.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/wod-ingestor/internal/idempotency"
	"github.com/jonesrussell/wod-ingestor/internal/logger"
	"github.com/jonesrussell/wod-ingestor/internal/models"
	"github.com/jonesrussell/wod-ingestor/internal/storage"
	"github.com/jonesrussell/wod-ingestor/internal/transform"
)

// Operation names feed idempotency key derivation; changing one invalidates
// every outstanding completion record for that operation.
const (
	OpDumpPost   = "dump_post_to_bucket"
	OpSaveWeekly = "save_sessions_to_bucket"
)

// ErrNoRecordDates is the one fatal validation error in the pipeline: a
// record batch with no dates at all cannot derive a persistence key.
var ErrNoRecordDates = errors.New("no dates found in session records")

// ErrUnparseablePostDate means a post's publish timestamp could not be read,
// so no archive path can be derived for it.
var ErrUnparseablePostDate = errors.New("unparseable post publish date")

// Service runs the ingestion pipeline for posts and record batches.
type Service struct {
	objects     storage.ObjectStore
	idempotency *idempotency.Coordinator
	resolver    *transform.Resolver
	logger      logger.Logger
}

// NewService creates the pipeline service.
func NewService(objects storage.ObjectStore, coord *idempotency.Coordinator, log logger.Logger) *Service {
	return &Service{
		objects:     objects,
		idempotency: coord,
		resolver:    transform.NewResolver(log),
		logger:      log,
	}
}

// RawPostPath derives the content-addressable archive key for one raw post.
func RawPostPath(post *models.RawPost) (string, error) {
	published, ok := post.PublishedAt()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnparseablePostDate, post.Date)
	}
	return fmt.Sprintf("raw/%s__%s__raw.json", published.Format(transform.DateLayout), post.Slug), nil
}

// WeeklyPath derives the archive key for a week of session records.
func WeeklyPath(start, end time.Time) string {
	return fmt.Sprintf("weekly/%s__%s--5-day-weightlifting-program.json",
		start.Format(transform.DateLayout), end.Format(transform.DateLayout))
}

// ArchiveRawPost writes one raw post to the object store at most once.
// Completed operations and already-present objects are both skip paths,
// returned as success.
func (s *Service) ArchiveRawPost(ctx context.Context, post *models.RawPost) error {
	path, err := RawPostPath(post)
	if err != nil {
		return err
	}

	key := idempotency.GenerateKey(OpDumpPost, path)
	log := s.logger.With(
		logger.String("slug", post.Slug),
		logger.String("path", path),
	)

	if s.idempotency.Check(ctx, key) {
		log.Info("post archive already completed, skipping")
		return nil
	}

	if s.objectExists(ctx, path) {
		log.Info("post already present in bucket, skipping write")
		// The object is durable even though this run didn't write it.
		s.idempotency.MarkComplete(ctx, key)
		return nil
	}

	body, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("encode post %s: %w", post.Slug, err)
	}

	metadata := map[string]string{
		"idempotency_key": key,
		"operation":       OpDumpPost,
	}
	if err := s.objects.Put(ctx, path, body, metadata); err != nil {
		return fmt.Errorf("archive post %s: %w", post.Slug, err)
	}

	s.idempotency.MarkComplete(ctx, key)
	log.Info("post archived")
	return nil
}

// ProcessPost runs the segmentation pipeline over one post: markup stripping,
// day and block segmentation, date resolution, record normalization. Pure
// apart from logging; a post with no recognizable structure yields an empty
// batch, never an error.
func (s *Service) ProcessPost(post *models.RawPost) ([]models.SessionRecord, error) {
	normalized, err := transform.NormalizePost(post)
	if err != nil {
		return nil, fmt.Errorf("normalize post %s: %w", post.Slug, err)
	}

	days := transform.SegmentPost(normalized)
	resolution := s.resolver.Resolve(normalized, len(days))
	records := transform.BuildRecords(days, resolution.Dates)

	s.logger.Info("post segmented",
		logger.String("slug", post.Slug),
		logger.Int("days", len(days)),
		logger.String("date_source", resolution.Source.String()),
	)
	return records, nil
}

// SaveWeeklyRecords persists a record batch as JSON Lines at most once,
// keyed by the batch's date span. A batch with no dates at all is the single
// fatal validation case.
func (s *Service) SaveWeeklyRecords(ctx context.Context, records []models.SessionRecord) (string, error) {
	start, end, err := recordSpan(records)
	if err != nil {
		return "", err
	}

	path := WeeklyPath(start, end)
	key := idempotency.GenerateKey(OpSaveWeekly, path)
	log := s.logger.With(logger.String("path", path))

	if s.idempotency.Check(ctx, key) {
		log.Info("weekly save already completed, skipping")
		return path, nil
	}

	if s.objectExists(ctx, path) {
		log.Info("weekly sessions file already exists, skipping write")
		s.idempotency.MarkComplete(ctx, key)
		return path, nil
	}

	body, err := jsonLines(records)
	if err != nil {
		return "", err
	}

	metadata := map[string]string{
		"idempotency_key": key,
		"operation":       OpSaveWeekly,
	}
	if err := s.objects.Put(ctx, path, body, metadata); err != nil {
		return "", fmt.Errorf("save weekly records: %w", err)
	}

	s.idempotency.MarkComplete(ctx, key)
	log.Info("weekly records saved", logger.Int("records", len(records)))
	return path, nil
}

// SaveWeeklyPayload decodes a serialized record batch and persists it. This
// is the entry point for batches produced by an earlier run or an external
// step, arriving either as a bare JSON array or under a result/records/data
// envelope.
func (s *Service) SaveWeeklyPayload(ctx context.Context, payload []byte) (string, error) {
	records, err := models.DecodeSessionRecords(payload)
	if err != nil {
		return "", fmt.Errorf("decode weekly payload: %w", err)
	}
	return s.SaveWeeklyRecords(ctx, records)
}

// IngestPost runs the whole pipeline for one post: archive the raw body,
// segment it, persist the weekly batch. Each run carries a correlation id
// through its log entries.
func (s *Service) IngestPost(ctx context.Context, post *models.RawPost) ([]models.SessionRecord, error) {
	runLog := s.logger.With(
		logger.String("correlation_id", uuid.NewString()),
		logger.String("slug", post.Slug),
	)
	runLog.Info("ingesting post")

	if err := s.ArchiveRawPost(ctx, post); err != nil {
		return nil, err
	}

	records, err := s.ProcessPost(post)
	if err != nil {
		return nil, err
	}

	if _, err := s.SaveWeeklyRecords(ctx, records); err != nil {
		return nil, err
	}

	runLog.Info("post ingested", logger.Int("records", len(records)))
	return records, nil
}

// objectExists collapses store probe errors to false with a warning: the
// system always prefers an extra write attempt over blocking on a broken
// store probe.
func (s *Service) objectExists(ctx context.Context, path string) bool {
	exists, err := s.objects.Exists(ctx, path)
	if err != nil {
		s.logger.Warn("object existence check failed, assuming absent",
			logger.String("path", path),
			logger.Error(err),
		)
		return false
	}
	return exists
}

// recordSpan normalizes every record date to the canonical form and returns
// the batch's min and max dates.
func recordSpan(records []models.SessionRecord) (time.Time, time.Time, error) {
	var start, end time.Time
	found := false

	for i := range records {
		if records[i].Date == "" {
			continue
		}
		d, ok := models.ParsePostDate(records[i].Date)
		if !ok {
			continue
		}
		records[i].Date = d.Format(transform.DateLayout)

		if !found || d.Before(start) {
			start = d
		}
		if !found || d.After(end) {
			end = d
		}
		found = true
	}

	if !found {
		return time.Time{}, time.Time{}, ErrNoRecordDates
	}
	return start, end, nil
}

// jsonLines serializes records one JSON object per line.
func jsonLines(records []models.SessionRecord) ([]byte, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return []byte(strings.TrimSuffix(b.String(), "\n")), nil
}
