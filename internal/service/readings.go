package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	rt "resin_tracker"
	"resin_tracker/internal/ingest"
	"resin_tracker/internal/logger"
	"resin_tracker/internal/metrics"
	"resin_tracker/internal/repository"
)

// ErrNoSource is returned by ImportURL when neither a URL argument nor a
// configured source URL is available.
var ErrNoSource = errors.New("no source url configured")

// remoteSource fetches and decodes a remote export.
type remoteSource interface {
	Fetch(ctx context.Context, url string) ([]rt.Event, ingest.Stats, error)
}

type invalidator interface {
	Invalidate()
}

type ReadingsService struct {
	repo      repository.Readings
	decoder   *ingest.Decoder
	remote    remoteSource
	sourceURL string
	snapshots invalidator
	log       *logger.Logger
}

func NewReadingsService(repo repository.Readings, decoder *ingest.Decoder, remote remoteSource, snapshots invalidator, log *logger.Logger) *ReadingsService {
	return &ReadingsService{repo: repo, decoder: decoder, remote: remote, snapshots: snapshots, log: log}
}

// WithSourceURL sets the export fetched when ImportURL gets an empty url.
func (s *ReadingsService) WithSourceURL(url string) *ReadingsService {
	s.sourceURL = strings.TrimSpace(url)
	return s
}

func newHTTPFetcher(timeout time.Duration, decoder *ingest.Decoder) *ingest.Fetcher {
	return ingest.NewFetcher(&http.Client{Timeout: timeout}, decoder)
}

// Import decodes a CSV export and stores every usable row.
func (s *ReadingsService) Import(ctx context.Context, r io.Reader) (ingest.Stats, error) {
	events, stats, err := s.decoder.Decode(r)
	if err != nil {
		return stats, fmt.Errorf("decode readings: %w", err)
	}
	return s.store(ctx, events, stats, "upload")
}

// ImportURL fetches a remote export; an empty url uses the configured one.
func (s *ReadingsService) ImportURL(ctx context.Context, url string) (ingest.Stats, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		url = s.sourceURL
	}
	if url == "" {
		return ingest.Stats{}, ErrNoSource
	}
	events, stats, err := s.remote.Fetch(ctx, url)
	if err != nil {
		return stats, err
	}
	return s.store(ctx, events, stats, url)
}

func (s *ReadingsService) store(ctx context.Context, events []rt.Event, stats ingest.Stats, origin string) (ingest.Stats, error) {
	stored, err := s.repo.AppendBatch(ctx, events)
	if err != nil {
		return stats, fmt.Errorf("store readings: %w", err)
	}
	stats.Events = stored
	metrics.RecordImport(stored, stats.Skipped)
	if stored > 0 && s.snapshots != nil {
		s.snapshots.Invalidate()
	}
	if s.log != nil {
		s.log.Infow("readings_imported", "origin", origin, "rows", stats.Rows, "stored", stored, "skipped", stats.Skipped)
	}
	return stats, nil
}

// List returns stored readings in time order.
func (s *ReadingsService) List(ctx context.Context, f ReadingFilter) ([]rt.Event, error) {
	rf, err := RangeFilter{From: f.From, To: f.To}.normalize()
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, rf.From, rf.To, normalizeTags(f.Tags))
}
