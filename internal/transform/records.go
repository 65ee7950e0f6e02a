package transform

import (
	"strings"
	"time"

	"github.com/jonesrussell/wod-ingestor/internal/models"
)

// DateLayout is the canonical calendar-date form used in session records and
// storage paths.
const DateLayout = "2006-01-02"

// restDayText fills the session field of a day with no session header.
const restDayText = "Rest Day"

// BuildRecords converts segmented days plus their assigned dates into
// canonical session records, one per day, in order.
func BuildRecords(days []models.SegmentedDay, dates []time.Time) []models.SessionRecord {
	n := len(days)
	if len(dates) < n {
		n = len(dates)
	}

	records := make([]models.SessionRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, NormalizeDay(days[i].Blocks, dates[i]))
	}
	return records
}

// NormalizeDay collapses one day's blocks into a session record: labels are
// renamed to canonical field names, stray single-letter "s"/"r" labels (line
// wrap artifacts of the source text) and unmapped labels are dropped, block
// bodies are joined with single spaces, and a day without session text
// becomes a Rest Day. Every canonical field is always present, defaulting to
// the empty string.
func NormalizeDay(blocks []models.Block, date time.Time) models.SessionRecord {
	rec := models.SessionRecord{Date: date.Format(DateLayout)}

	for _, block := range blocks {
		text := joinBody(block.Body)

		switch canonicalLabel(block.Label) {
		case "session":
			if rec.Session == "" {
				rec.Session = text
			}
		case "warm_up":
			rec.WarmUp = text
		case "segment_a":
			rec.SegmentA = text
		case "segment_b":
			rec.SegmentB = text
		case "segment_c":
			rec.SegmentC = text
		case "segment_d":
			rec.SegmentD = text
		case "segment_e":
			rec.SegmentE = text
		}
	}

	if rec.Session == "" {
		rec.Session = restDayText
	}
	return rec
}

// canonicalLabel renames a block label to its record field name. The empty
// string means the block carries no canonical field and is dropped; that
// covers the stray "s"/"r" artifacts and anything else unmapped (including
// "F.", which the record shape has no slot for).
func canonicalLabel(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case SessionLabel:
		return "session"
	case "suggested warm-up":
		return "warm_up"
	case "a.":
		return "segment_a"
	case "b.":
		return "segment_b"
	case "c.":
		return "segment_c"
	case "d.":
		return "segment_d"
	case "e.":
		return "segment_e"
	case "s", "r":
		return ""
	default:
		return ""
	}
}

// joinBody concatenates a block's body lines with single spaces, skipping
// blank lines.
func joinBody(body []string) string {
	parts := make([]string, 0, len(body))
	for _, line := range body {
		line = strings.TrimSpace(line)
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
