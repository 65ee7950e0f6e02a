package models

import "time"

// DaySegment is a contiguous run of normalized-post lines starting at a
// weekday marker line and ending just before the next one.
type DaySegment struct {
	Lines []string
}

// Block is a labeled run of lines inside one day, produced by partitioning a
// DaySegment on sub-header markers ("Session", "Suggested Warm-Up", "A." to "F.").
type Block struct {
	Label string
	Body  []string
}

// SegmentedDay is the ordered block list for one calendar day. The first
// block always carries the synthetic "session" label.
type SegmentedDay struct {
	Blocks []Block
}

// DateRange is an inclusive calendar date span resolved from a post's slug or
// title. Start is never after End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls inside the range, comparing dates only.
func (r DateRange) Contains(d time.Time) bool {
	day := truncateToDay(d)
	return !day.Before(truncateToDay(r.Start)) && !day.After(truncateToDay(r.End))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SessionRecord is the canonical persisted unit: one training day. Dates use
// the YYYY-MM-DD form. Empty segments are empty strings, never absent.
type SessionRecord struct {
	Date     string `json:"date"`
	Session  string `json:"session"`
	WarmUp   string `json:"warm_up"`
	SegmentA string `json:"segment_a"`
	SegmentB string `json:"segment_b"`
	SegmentC string `json:"segment_c"`
	SegmentD string `json:"segment_d"`
	SegmentE string `json:"segment_e"`
}

// IdempotencyRecord is the row written to the key-value table after a durable
// write completes. TTL expiry is advisory cleanup; correctness relies on the
// paired object-store existence check in the persistence step.
type IdempotencyRecord struct {
	Key         string `json:"idempotency_key"`
	TTL         int64  `json:"ttl"` // epoch seconds
	CompletedAt string `json:"completed_at"`
}
