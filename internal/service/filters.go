package service

import (
	"errors"
	"strings"
	"time"
)

// RangeFilter selects completed lots by their start time. Lots are always
// segmented over the whole stream so a range never cuts a lot in two.
type RangeFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
}

// ReadingFilter selects stored readings by time range and tag.
type ReadingFilter struct {
	From time.Time
	To   time.Time
	Tags []string
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func (f RangeFilter) normalize() (RangeFilter, error) {
	out := RangeFilter{From: normalizeToUTC(f.From), To: normalizeToUTC(f.To)}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return RangeFilter{}, errInvalidTimeRange
	}
	return out, nil
}

// contains reports whether t lies within the inclusive range.
func (f RangeFilter) contains(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.After(f.To) {
		return false
	}
	return true
}

// normalizeTags trims, drops empties and de-duplicates, keeping order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// IsInvalidRange reports whether err is a rejected time range.
func IsInvalidRange(err error) bool {
	return errors.Is(err, errInvalidTimeRange)
}
