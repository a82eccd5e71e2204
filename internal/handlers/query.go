package handlers

import (
	"fmt"
	"strings"
	"time"

	"resin_tracker/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRangeOrder  = "'from' must be <= 'to'"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// parseRange reads optional ?from= and ?to=. A date-only 'to' covers the
// whole day. The returned string is a client-facing error message.
func parseRange(c *gin.Context) (service.RangeFilter, string) {
	var (
		f   service.RangeFilter
		err error
	)
	if qs := c.Query("from"); qs != "" {
		f.From, err = parseQueryTime(qs)
		if err != nil {
			return service.RangeFilter{}, errFromInvalid
		}
	}
	if qs := c.Query("to"); qs != "" {
		f.To, err = parseQueryTime(qs)
		if err != nil {
			return service.RangeFilter{}, errToInvalid
		}
		if isDateOnly(qs) {
			f.To = f.To.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return service.RangeFilter{}, errRangeOrder
	}
	return f, ""
}

func parseQueryTime(s string) (time.Time, error) {
	// Try multiple accepted formats, normalizing to UTC.
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
