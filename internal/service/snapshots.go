package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	rt "resin_tracker"
	"resin_tracker/internal/cache"
	"resin_tracker/internal/config"
	"resin_tracker/internal/metrics"
	"resin_tracker/internal/repository"
)

// Snapshots loads the readings of one workshop and reuses them for the
// cache lifetime. Returned slices are shared and must not be modified.
type Snapshots struct {
	readings repository.Readings
	cache    *cache.TTL[[]rt.Event]
}

func NewSnapshots(readings repository.Readings, c *cache.TTL[[]rt.Event]) *Snapshots {
	return &Snapshots{readings: readings, cache: c}
}

// Load returns every reading of ws's lot and counter tags.
func (s *Snapshots) Load(ctx context.Context, ws rt.WorkshopConfig) ([]rt.Event, error) {
	key := snapshotKey(ws)
	if events, ok := s.cache.Get(key); ok {
		metrics.RecordSnapshotLookup(true)
		return events, nil
	}
	metrics.RecordSnapshotLookup(false)

	gen := s.cache.Generation()
	events, err := s.readings.List(ctx, time.Time{}, time.Time{}, config.Tags(ws))
	if err != nil {
		return nil, fmt.Errorf("load readings for %s: %w", ws.Name, err)
	}
	s.cache.SetIfGeneration(key, events, gen)
	s.publishStats()
	return events, nil
}

// Invalidate forgets every snapshot; called after new readings are stored.
// A load still in flight will not cache what it read.
func (s *Snapshots) Invalidate() {
	s.cache.Invalidate()
	s.publishStats()
}

func (s *Snapshots) Close() { s.cache.Close() }

func (s *Snapshots) publishStats() {
	st := s.cache.Stats()
	metrics.RecordSnapshotCache(st.Size, st.Evictions, st.Discarded)
}

func snapshotKey(ws rt.WorkshopConfig) string {
	return strings.ToLower(ws.Name) + "|" + ws.LotTag
}

// MemorySource serves a fixed event set, for offline runs on a CSV file.
type MemorySource struct {
	events []rt.Event
}

func NewMemorySource(events []rt.Event) *MemorySource {
	return &MemorySource{events: events}
}

// Load returns the events of ws's tags, in input order.
func (m *MemorySource) Load(_ context.Context, ws rt.WorkshopConfig) ([]rt.Event, error) {
	tags := make(map[string]bool, len(ws.CounterTags)+1)
	for _, t := range config.Tags(ws) {
		tags[t] = true
	}
	var out []rt.Event
	for _, ev := range m.events {
		if !tags[ev.Tag] {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
