package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/wod-ingestor/internal/idempotency"
	"github.com/jonesrussell/wod-ingestor/internal/ingest"
	"github.com/jonesrussell/wod-ingestor/internal/logger"
	"github.com/jonesrussell/wod-ingestor/internal/models"
	"github.com/jonesrussell/wod-ingestor/internal/storage"
)

func newTestService(t *testing.T) (*ingest.Service, *storage.MemoryStore) {
	t.Helper()
	svc, objects, _ := newTestServiceWithRedis(t)
	return svc, objects
}

func newTestServiceWithRedis(t *testing.T) (*ingest.Service, *storage.MemoryStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	objects := storage.NewMemoryStore()
	coord := idempotency.NewCoordinator(
		storage.NewRedisKV(client, "idempotency"),
		time.Hour,
		logger.NewNopLogger(),
	)

	return ingest.NewService(objects, coord, logger.NewNopLogger()), objects, mr
}

func samplePost() *models.RawPost {
	return &models.RawPost{
		ID:   101,
		Date: "2024-04-01T08:00:00",
		Slug: "april-1-7-2024-5-day-weightlifting-program",
		Title: models.RenderedText{
			Rendered: "Weightlifting Program April 1&#8211;7, 2024",
		},
		Content: models.RenderedText{
			Rendered: "<p>Monday (Session One)</p>" +
				"<p>Suggested Warm-Up</p><p>2 min row</p>" +
				"<p>A.</p><p>Back Squat 5x5</p>" +
				"<p>Tuesday (Session Two)</p>" +
				"<p>A.</p><p>Deadlift 3x5</p>",
		},
	}
}

func TestRawPostPath(t *testing.T) {
	path, err := ingest.RawPostPath(samplePost())
	require.NoError(t, err)
	assert.Equal(t, "raw/2024-04-01__april-1-7-2024-5-day-weightlifting-program__raw.json", path)
}

func TestRawPostPath_UnparseableDate(t *testing.T) {
	post := samplePost()
	post.Date = "yesterday"

	_, err := ingest.RawPostPath(post)
	require.ErrorIs(t, err, ingest.ErrUnparseablePostDate)
}

func TestWeeklyPath(t *testing.T) {
	start := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t,
		"weekly/2024-04-01__2024-04-05--5-day-weightlifting-program.json",
		ingest.WeeklyPath(start, end))
}

func TestArchiveRawPost_WritesOnce(t *testing.T) {
	svc, objects := newTestService(t)
	ctx := context.Background()
	post := samplePost()

	require.NoError(t, svc.ArchiveRawPost(ctx, post))
	require.Equal(t, 1, objects.Len())

	path := objects.Keys()[0]
	body, ok := objects.Get(path)
	require.True(t, ok)

	var stored models.RawPost
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Equal(t, post.Slug, stored.Slug)
	assert.Equal(t, post.Content.Rendered, stored.Content.Rendered)

	meta := objects.Metadata(path)
	assert.Equal(t, "dump_post_to_bucket", meta["operation"])
	assert.NotEmpty(t, meta["idempotency_key"])

	// a second run is a no-op
	require.NoError(t, svc.ArchiveRawPost(ctx, post))
	assert.Equal(t, 1, objects.Len())
}

func TestArchiveRawPost_ExistingObjectSkipsWrite(t *testing.T) {
	svc, objects := newTestService(t)
	ctx := context.Background()
	post := samplePost()

	path, err := ingest.RawPostPath(post)
	require.NoError(t, err)

	// seed the object as if written by an earlier deployment with no
	// idempotency record
	require.NoError(t, objects.Put(ctx, path, []byte("{}"), nil))

	require.NoError(t, svc.ArchiveRawPost(ctx, post))

	body, _ := objects.Get(path)
	assert.Equal(t, []byte("{}"), body, "existing object must not be overwritten")
}

func TestArchiveRawPost_FailsOpenOnBrokenProbe(t *testing.T) {
	svc, objects := newTestService(t)
	objects.FailExists = errors.New("bucket unreachable")

	require.NoError(t, svc.ArchiveRawPost(context.Background(), samplePost()))
	assert.Equal(t, 1, objects.Len(), "broken probe must not block the write")
}

func TestProcessPost(t *testing.T) {
	svc, _ := newTestService(t)

	records, err := svc.ProcessPost(samplePost())
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "2024-04-01", records[0].Date)
	assert.Equal(t, "(Session One)", records[0].Session)
	assert.Equal(t, "2 min row", records[0].WarmUp)
	assert.Equal(t, "Back Squat 5x5", records[0].SegmentA)
	assert.Equal(t, "2024-04-02", records[1].Date)
	assert.Equal(t, "Deadlift 3x5", records[1].SegmentA)
}

func TestProcessPost_NoStructure(t *testing.T) {
	svc, _ := newTestService(t)

	post := samplePost()
	post.Content.Rendered = "<p>Some musings about training philosophy.</p>"

	records, err := svc.ProcessPost(post)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveWeeklyRecords(t *testing.T) {
	svc, objects := newTestService(t)
	ctx := context.Background()

	records := []models.SessionRecord{
		{Date: "2024-04-01", Session: "(Session One)"},
		{Date: "2024-04-02", Session: "Rest Day"},
		{Date: "2024-04-03", Session: "(Session Three)"},
	}

	path, err := svc.SaveWeeklyRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, "weekly/2024-04-01__2024-04-03--5-day-weightlifting-program.json", path)

	body, ok := objects.Get(path)
	require.True(t, ok)

	// JSON Lines: one object per line
	lines := strings.Split(string(body), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		var rec models.SessionRecord
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Equal(t, records[i].Date, rec.Date)
	}

	// repeat save is a no-op
	_, err = svc.SaveWeeklyRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 1, objects.Len())
}

func TestSaveWeeklyRecords_NoDates(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SaveWeeklyRecords(context.Background(), []models.SessionRecord{
		{Session: "no date here"},
		{Date: "not a date", Session: "unparseable"},
	})
	require.ErrorIs(t, err, ingest.ErrNoRecordDates)
}

func TestSaveWeeklyRecords_NormalizesDates(t *testing.T) {
	svc, objects := newTestService(t)

	records := []models.SessionRecord{
		{Date: "2024-04-01T08:00:00", Session: "one"},
	}

	path, err := svc.SaveWeeklyRecords(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, "weekly/2024-04-01__2024-04-01--5-day-weightlifting-program.json", path)

	body, _ := objects.Get(path)
	var rec models.SessionRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "2024-04-01", rec.Date)
}

func TestSaveWeeklyPayload(t *testing.T) {
	svc, objects := newTestService(t)
	ctx := context.Background()

	t.Run("bare array", func(t *testing.T) {
		path, err := svc.SaveWeeklyPayload(ctx, []byte(`[{"date":"2024-04-01","session":"one"}]`))
		require.NoError(t, err)
		_, ok := objects.Get(path)
		assert.True(t, ok)
	})

	t.Run("result envelope", func(t *testing.T) {
		path, err := svc.SaveWeeklyPayload(ctx, []byte(`{"result":[{"date":"2024-05-06","session":"one"}]}`))
		require.NoError(t, err)
		assert.Equal(t, "weekly/2024-05-06__2024-05-06--5-day-weightlifting-program.json", path)
	})

	t.Run("unrecognized shape", func(t *testing.T) {
		_, err := svc.SaveWeeklyPayload(ctx, []byte(`{"items":[]}`))
		require.ErrorIs(t, err, models.ErrUnrecognizedPayload)
	})
}

func TestIngestPost_EndToEnd(t *testing.T) {
	svc, objects, mr := newTestServiceWithRedis(t)
	ctx := context.Background()
	post := samplePost()

	records, err := svc.IngestPost(ctx, post)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// exactly one raw archive and one weekly file
	require.Equal(t, 2, objects.Len())
	keys := objects.Keys()
	assert.Contains(t, keys, "raw/2024-04-01__april-1-7-2024-5-day-weightlifting-program__raw.json")
	assert.Contains(t, keys, "weekly/2024-04-01__2024-04-02--5-day-weightlifting-program.json")

	// one completion record per operation
	assert.Len(t, mr.Keys(), 2)

	// the whole pipeline is idempotent end to end
	_, err = svc.IngestPost(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, 2, objects.Len())
	assert.Len(t, mr.Keys(), 2)
}
