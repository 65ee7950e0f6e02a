package transform

import (
	"regexp"
	"strings"

	"github.com/jonesrussell/wod-ingestor/internal/models"
)

// SessionLabel is the synthetic label carried by the first block of every
// segmented day.
const SessionLabel = "session"

// RestDaySentinel is the single-block body emitted for a day with no
// sub-header content.
const RestDaySentinel = "rest day"

// weekdayPattern anchors day segmentation: any weekday name, anywhere in the
// line, case-insensitive.
var weekdayPattern = regexp.MustCompile(
	`(?i)(monday)|(tuesday)|(wednesday)|(thursday)|(friday)|(saturday)|(sunday)`)

// blockPattern anchors block segmentation inside one day: a "Session" header,
// a warm-up header, or a bare single-letter exercise label A. through F. on its own
// line.
var blockPattern = regexp.MustCompile(`(?i)(session)|(suggested warm-up)|^[a-f]\.$`)

// SegmentDays partitions normalized post lines into one segment per weekday
// marker found. Zero markers yields an empty result, which is a valid
// (degenerate) outcome, not an error. Lines before the first marker are
// discarded by construction.
func SegmentDays(lines []string) []models.DaySegment {
	groups := GroupByPattern(weekdayPattern, lines)

	segments := make([]models.DaySegment, 0, len(groups))
	for _, group := range groups {
		segments = append(segments, models.DaySegment{Lines: group})
	}
	return segments
}

// SegmentBlocks partitions one day's lines into labeled blocks. The first
// block is always the synthetic "session" block carrying the weekday line's
// trailing text ("Monday (Session One)" yields "(Session One)"). A day with
// no sub-header markers at all collapses to the rest-day sentinel.
func SegmentBlocks(day models.DaySegment) models.SegmentedDay {
	if len(day.Lines) == 0 {
		return restDay()
	}

	header := day.Lines[0]
	groups := GroupByPattern(blockPattern, day.Lines[1:])
	if len(groups) == 0 {
		return restDay()
	}

	blocks := make([]models.Block, 0, len(groups)+1)
	blocks = append(blocks, models.Block{
		Label: SessionLabel,
		Body:  []string{sessionText(header)},
	})
	for _, group := range groups {
		blocks = append(blocks, models.Block{
			Label: strings.TrimSpace(group[0]),
			Body:  group[1:],
		})
	}

	return models.SegmentedDay{Blocks: blocks}
}

// SegmentPost runs day and block segmentation over a whole normalized post.
func SegmentPost(post *models.NormalizedPost) []models.SegmentedDay {
	segments := SegmentDays(post.Lines)

	days := make([]models.SegmentedDay, 0, len(segments))
	for _, segment := range segments {
		days = append(days, SegmentBlocks(segment))
	}
	return days
}

// sessionText returns the portion of a weekday marker line after the weekday
// name itself.
func sessionText(header string) string {
	loc := weekdayPattern.FindStringIndex(header)
	if loc == nil {
		return strings.TrimSpace(header)
	}
	return strings.TrimSpace(header[loc[1]:])
}

func restDay() models.SegmentedDay {
	return models.SegmentedDay{
		Blocks: []models.Block{{Label: SessionLabel, Body: []string{RestDaySentinel}}},
	}
}
