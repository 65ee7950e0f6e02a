// Package transform implements the segmentation pipeline that turns a raw
// workout blog post into dated session records: markup stripping, weekday and
// sub-header partitioning, date resolution, and record normalization.
package transform

import "regexp"

// MatchFunc reports whether a line is a partition marker.
type MatchFunc func(line string) bool

// GroupBy partitions source into contiguous groups, each starting at a line
// satisfying match and running up to (not including) the next matching line.
// The final group runs to the end of source. Lines before the first marker
// belong to no group and are discarded. No matching lines yields nil.
//
// Both the day and block segmenters are built on this primitive, so its edge
// cases (no match, single match, trailing partial group) carry the whole
// pipeline.
func GroupBy(match MatchFunc, source []string) [][]string {
	var markers []int
	for i, line := range source {
		if match(line) {
			markers = append(markers, i)
		}
	}
	if len(markers) == 0 {
		return nil
	}

	groups := make([][]string, 0, len(markers))
	for i, start := range markers {
		end := len(source)
		if i+1 < len(markers) {
			end = markers[i+1]
		}
		groups = append(groups, source[start:end])
	}
	return groups
}

// GroupByPattern partitions source on lines matching re.
func GroupByPattern(re *regexp.Regexp, source []string) [][]string {
	return GroupBy(re.MatchString, source)
}
