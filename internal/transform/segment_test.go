package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/wod-ingestor/internal/models"
	"github.com/jonesrussell/wod-ingestor/internal/transform"
)

func TestSegmentDays(t *testing.T) {
	lines := []string{
		"5 Day Weightlifting Program",
		"",
		"Monday (Session One)",
		"Suggested Warm-Up",
		"rowing",
		"tuesday",
		"A.",
		"back squat",
	}

	segments := transform.SegmentDays(lines)

	require.Len(t, segments, 2)
	assert.Equal(t, "Monday (Session One)", segments[0].Lines[0])
	assert.Equal(t, "tuesday", segments[1].Lines[0])
	// the title and blank line before the first weekday belong to no day
	assert.Len(t, segments[0].Lines, 3)
}

func TestSegmentDays_NoWeekdayMarkers(t *testing.T) {
	segments := transform.SegmentDays([]string{"just", "some", "text"})
	assert.Empty(t, segments)
}

func TestSegmentBlocks(t *testing.T) {
	day := models.DaySegment{Lines: []string{
		"Monday (Session One)",
		"Suggested Warm-Up",
		"2 min row",
		"band pull-aparts",
		"A.",
		"Back Squat 5x5",
		"B.",
		"Bench Press 3x8",
	}}

	segmented := transform.SegmentBlocks(day)

	require.Len(t, segmented.Blocks, 4)

	session := segmented.Blocks[0]
	assert.Equal(t, transform.SessionLabel, session.Label)
	assert.Equal(t, []string{"(Session One)"}, session.Body)

	warmUp := segmented.Blocks[1]
	assert.Equal(t, "Suggested Warm-Up", warmUp.Label)
	assert.Equal(t, []string{"2 min row", "band pull-aparts"}, warmUp.Body)

	assert.Equal(t, "A.", segmented.Blocks[2].Label)
	assert.Equal(t, []string{"Back Squat 5x5"}, segmented.Blocks[2].Body)
	assert.Equal(t, "B.", segmented.Blocks[3].Label)
}

func TestSegmentBlocks_RestDay(t *testing.T) {
	testCases := []struct {
		name string
		day  models.DaySegment
	}{
		{
			name: "no sub-header markers",
			day:  models.DaySegment{Lines: []string{"Sunday", "sleep in", "go for a walk"}},
		},
		{
			name: "weekday line only",
			day:  models.DaySegment{Lines: []string{"Saturday"}},
		},
		{
			name: "empty segment",
			day:  models.DaySegment{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			segmented := transform.SegmentBlocks(tc.day)

			require.Len(t, segmented.Blocks, 1)
			assert.Equal(t, transform.SessionLabel, segmented.Blocks[0].Label)
			assert.Equal(t, []string{transform.RestDaySentinel}, segmented.Blocks[0].Body)
		})
	}
}

func TestSegmentBlocks_CaseInsensitiveMarkers(t *testing.T) {
	day := models.DaySegment{Lines: []string{
		"WEDNESDAY",
		"suggested warm-up",
		"jumping jacks",
		"a.",
		"deadlift",
	}}

	segmented := transform.SegmentBlocks(day)

	require.Len(t, segmented.Blocks, 3)
	assert.Equal(t, "suggested warm-up", segmented.Blocks[1].Label)
	assert.Equal(t, "a.", segmented.Blocks[2].Label)
}

func TestSegmentPost(t *testing.T) {
	post := &models.NormalizedPost{Lines: []string{
		"Weekly Program",
		"Monday",
		"A.",
		"squat",
		"Tuesday",
	}}

	days := transform.SegmentPost(post)

	require.Len(t, days, 2)
	require.Len(t, days[0].Blocks, 2)
	assert.Equal(t, "A.", days[0].Blocks[1].Label)

	// Tuesday has no markers, so it collapses to a rest day
	require.Len(t, days[1].Blocks, 1)
	assert.Equal(t, []string{transform.RestDaySentinel}, days[1].Blocks[0].Body)
}
