package transform

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/wod-ingestor/internal/logger"
	"github.com/jonesrussell/wod-ingestor/internal/models"
)

// DateSource identifies which rung of the resolution priority chain produced
// a post's dates.
type DateSource int

const (
	DateSourceNone DateSource = iota
	DateSourceSlug
	DateSourceTitle
	DateSourcePostDate
	DateSourceCurrent
)

func (s DateSource) String() string {
	switch s {
	case DateSourceSlug:
		return "slug"
	case DateSourceTitle:
		return "title"
	case DateSourcePostDate:
		return "post_date"
	case DateSourceCurrent:
		return "current_date"
	default:
		return "none"
	}
}

const monthAlternation = `january|february|march|april|may|june|july|august|september|october|november|december`

// slugRangePattern matches slugs like "april-1-7-2024-5-day-weightlifting-program".
var slugRangePattern = regexp.MustCompile(
	`(?i)\b(` + monthAlternation + `)-(\d{1,2})-(\d{1,2})-(\d{4})\b`)

// titleRangePattern matches titles like "April 1-7, 2024" or "April 1-7 2024"
// once dash entities have been normalized.
var titleRangePattern = regexp.MustCompile(
	`(?i)\b(` + monthAlternation + `)\s+(\d{1,2})\s*-\s*(\d{1,2}),?\s+(\d{4})\b`)

// dashReplacer normalizes the HTML dash entities WordPress titles carry.
var dashReplacer = strings.NewReplacer(
	"&#8211;", "-",
	"&ndash;", "-",
	"–", "-",
)

var monthsByName = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// NormalizeDashes rewrites HTML dash entities to a literal hyphen.
func NormalizeDashes(s string) string {
	return dashReplacer.Replace(s)
}

// ExtractRangeFromSlug pulls a month-day-day-year date range from a post
// slug. A pattern match naming an impossible calendar date is treated as no
// match.
func ExtractRangeFromSlug(slug string) (models.DateRange, bool) {
	m := slugRangePattern.FindStringSubmatch(slug)
	if m == nil {
		return models.DateRange{}, false
	}
	return buildRange(m[1], m[2], m[3], m[4])
}

// ExtractRangeFromTitle pulls a month-day-day-year date range from a post
// title, normalizing dash entities first.
func ExtractRangeFromTitle(title string) (models.DateRange, bool) {
	m := titleRangePattern.FindStringSubmatch(NormalizeDashes(title))
	if m == nil {
		return models.DateRange{}, false
	}
	return buildRange(m[1], m[2], m[3], m[4])
}

// buildRange validates the captured components against the real calendar.
// Invalid dates (February 30) and inverted ranges fall through as no-match so
// the resolver can try the next priority source.
func buildRange(monthName, startDay, endDay, year string) (models.DateRange, bool) {
	month, ok := monthsByName[strings.ToLower(monthName)]
	if !ok {
		return models.DateRange{}, false
	}

	start, ok := calendarDate(atoi(year), month, atoi(startDay))
	if !ok {
		return models.DateRange{}, false
	}
	end, ok := calendarDate(atoi(year), month, atoi(endDay))
	if !ok || end.Before(start) {
		return models.DateRange{}, false
	}

	return models.DateRange{Start: start, End: end}, true
}

// calendarDate constructs a UTC date and rejects combinations time.Date would
// silently normalize (February 30 becomes March 2 otherwise).
func calendarDate(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// atoi converts regex-captured digits; the patterns guarantee numeric input.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Resolution is the outcome of date resolution for one post.
type Resolution struct {
	// Range is the explicit range found in the slug or title, nil otherwise.
	Range *models.DateRange

	// Source is the priority-chain rung that produced Start.
	Source DateSource

	// Dates holds one assigned calendar date per segmented day, in order.
	Dates []time.Time
}

// Resolver determines calendar dates for segmented posts.
type Resolver struct {
	logger logger.Logger
	now    func() time.Time
}

// NewResolver creates a Resolver that logs degraded resolution paths.
func NewResolver(log logger.Logger) *Resolver {
	return &Resolver{logger: log, now: time.Now}
}

// Resolve walks the priority chain (slug pattern, title pattern, publish
// date, current date) to pick the first day's date, then assigns consecutive
// calendar dates to dayCount segmented days. The current-date rung is a
// non-production fallback and is logged as degraded.
func (r *Resolver) Resolve(post *models.NormalizedPost, dayCount int) Resolution {
	var (
		rng    *models.DateRange
		start  time.Time
		source DateSource
	)

	if dr, ok := ExtractRangeFromSlug(post.Slug); ok {
		rng = &dr
		start = dr.Start
		source = DateSourceSlug
	} else if dr, ok := ExtractRangeFromTitle(post.Title); ok {
		rng = &dr
		start = dr.Start
		source = DateSourceTitle
	} else if post.HasDate {
		start = post.PostDate
		source = DateSourcePostDate
	} else {
		start = r.now()
		source = DateSourceCurrent
		r.logger.Warn("no date source resolved for post, falling back to current date",
			logger.String("slug", post.Slug),
			logger.String("title", post.Title),
		)
	}

	dates := AssignDates(start, dayCount)

	if rng != nil && len(dates) > 0 && !assignedDatesOverlap(*rng, dates) {
		r.logger.Warn("assigned dates do not overlap resolved date range",
			logger.String("slug", post.Slug),
			logger.Time("range_start", rng.Start),
			logger.Time("range_end", rng.End),
			logger.Time("first_assigned", dates[0]),
			logger.Time("last_assigned", dates[len(dates)-1]),
		)
	}

	return Resolution{Range: rng, Source: source, Dates: dates}
}

// AssignDates assigns n consecutive calendar dates anchored at the Sunday
// preceding start: weekStart = start - isoWeekday(start) days, then
// date[i] = weekStart + (i+1) days. Dates go to segmented days by position;
// the weekday names parsed from the post text are deliberately never
// reconciled against real calendar weekdays, so messy or unlabeled day
// headers still receive a usable date sequence.
func AssignDates(start time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}

	weekStart := dateOnly(start).AddDate(0, 0, -isoWeekday(start))

	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = weekStart.AddDate(0, 0, i+1)
	}
	return dates
}

// isoWeekday returns Monday=1 .. Sunday=7.
func isoWeekday(t time.Time) int {
	w := int(t.Weekday())
	if w == 0 {
		return 7
	}
	return w
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// assignedDatesOverlap reports whether any assigned date falls inside the
// explicit range. Non-overlap is logged upstream but never fatal; the system
// prefers returning plausibly correct dates over rejecting the post.
func assignedDatesOverlap(rng models.DateRange, dates []time.Time) bool {
	for _, d := range dates {
		if rng.Contains(d) {
			return true
		}
	}
	return false
}
