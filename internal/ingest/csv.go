// Package ingest decodes historian CSV exports into events.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	rt "resin_tracker"
)

var (
	ErrNoHeader      = errors.New("csv: missing header line")
	ErrMissingColumn = errors.New("csv: missing required column")
)

// KindResolver classifies a tag as lot marker or counter sample.
type KindResolver interface {
	KindOf(tag string) rt.EventKind
}

// Stats reports what a decode kept and dropped.
type Stats struct {
	Rows    int `json:"rows"`
	Events  int `json:"events"`
	Skipped int `json:"skipped"`
}

// Decoder reads the PowerShell export layout: TagName, Valeur and either a
// DateTime column or Date_Cible + Heure.
type Decoder struct {
	kinds KindResolver
	loc   *time.Location
}

// NewDecoder builds a decoder. Timestamps without an offset are read in loc
// (UTC when nil).
func NewDecoder(kinds KindResolver, loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.UTC
	}
	return &Decoder{kinds: kinds, loc: loc}
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

type columns struct {
	tag, value, dateTime, date, hour int
}

// Decode reads every row. Rows without a tag or with an unreadable
// timestamp are skipped and counted; values go through ParseValue.
func (d *Decoder) Decode(r io.Reader) ([]rt.Event, Stats, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, Stats{}, fmt.Errorf("read csv: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffSeparator(first)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, Stats{}, ErrNoHeader
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, Stats{}, err
	}

	var (
		out   []rt.Event
		stats Stats
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read csv row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++

		ev, ok := d.event(rec, cols)
		if !ok {
			stats.Skipped++
			continue
		}
		out = append(out, ev)
	}
	stats.Events = len(out)
	return out, stats, nil
}

func (d *Decoder) event(rec []string, cols columns) (rt.Event, bool) {
	tag := strings.TrimSpace(field(rec, cols.tag))
	if tag == "" {
		return rt.Event{}, false
	}
	ts, ok := d.timestamp(rec, cols)
	if !ok {
		return rt.Event{}, false
	}
	return rt.Event{
		Timestamp: ts,
		Tag:       tag,
		Value:     ParseValue(field(rec, cols.value)),
		Kind:      d.kinds.KindOf(tag),
	}, true
}

func (d *Decoder) timestamp(rec []string, cols columns) (time.Time, bool) {
	var raw string
	if cols.dateTime >= 0 {
		raw = strings.TrimSpace(field(rec, cols.dateTime))
	} else {
		date := strings.TrimSpace(field(rec, cols.date))
		hour := strings.TrimSpace(field(rec, cols.hour))
		if h, err := strconv.Atoi(hour); err == nil && h >= 0 && h < 24 {
			hour = fmt.Sprintf("%02d:00:00", h)
		}
		raw = date + " " + hour
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, d.loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func mapColumns(header []string) (columns, error) {
	cols := columns{tag: -1, value: -1, dateTime: -1, date: -1, hour: -1}
	for i, h := range header {
		switch normalizeHeader(h) {
		case "tagname", "tag":
			cols.tag = i
		case "valeur", "value":
			cols.value = i
		case "datetime", "timestamp", "horodatage":
			cols.dateTime = i
		case "date_cible", "date":
			cols.date = i
		case "heure", "hour", "time":
			cols.hour = i
		}
	}
	switch {
	case cols.tag < 0:
		return cols, fmt.Errorf("%w: TagName", ErrMissingColumn)
	case cols.value < 0:
		return cols, fmt.Errorf("%w: Valeur", ErrMissingColumn)
	case cols.dateTime < 0 && (cols.date < 0 || cols.hour < 0):
		return cols, fmt.Errorf("%w: DateTime or Date_Cible+Heure", ErrMissingColumn)
	}
	return cols, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Trim(strings.TrimSpace(h), `"`))
}

// sniffSeparator picks ';' when the header line has more of them than ','.
func sniffSeparator(head []byte) rune {
	line := string(head)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
