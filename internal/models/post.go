// Package models defines the data shapes passed between pipeline stages.
package models

import (
	"time"
)

// RenderedText mirrors the WordPress REST "rendered" wrapper.
type RenderedText struct {
	Rendered string `json:"rendered"`
}

// RawPost is the subset of a WordPress REST post object the pipeline consumes.
// It is immutable once fetched; the text normalizer reads it exactly once.
type RawPost struct {
	ID      int          `json:"id"`
	Date    string       `json:"date"` // ISO-8601 publish timestamp
	Slug    string       `json:"slug"`
	Title   RenderedText `json:"title"`
	Content RenderedText `json:"content"`
}

// postDateLayouts covers the timestamp forms the WordPress API emits.
var postDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// PublishedAt parses the post's publish timestamp. The boolean is false when
// the field is empty or unparseable.
func (p *RawPost) PublishedAt() (time.Time, bool) {
	return ParsePostDate(p.Date)
}

// ParsePostDate parses a WordPress timestamp string.
func ParsePostDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range postDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizedPost is a post with markup stripped: line-oriented plain text plus
// the metadata carried forward for date resolution.
type NormalizedPost struct {
	Lines    []string
	PostDate time.Time
	HasDate  bool
	Slug     string
	Title    string
}
