package service

import (
	"context"
	"io"
	"time"

	rt "resin_tracker"
	"resin_tracker/internal/cache"
	"resin_tracker/internal/config"
	"resin_tracker/internal/ingest"
	"resin_tracker/internal/logger"
	"resin_tracker/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Analysis computes completed lots per workshop.
type Analysis interface {
	Workshops() []rt.WorkshopConfig
	AnalyzeWorkshop(ctx context.Context, name string, f RangeFilter) (rt.WorkshopReport, error)
	AnalyzeAll(ctx context.Context, f RangeFilter) ([]rt.WorkshopReport, error)
	LatestLot(ctx context.Context, name string) (rt.ConsumptionRecord, bool, error)
	Breakdown(ctx context.Context, name string, f RangeFilter) ([]rt.LotBreakdown, error)
}

// Readings imports historian exports and lists stored readings.
type Readings interface {
	Import(ctx context.Context, r io.Reader) (ingest.Stats, error)
	ImportURL(ctx context.Context, url string) (ingest.Stats, error)
	List(ctx context.Context, f ReadingFilter) ([]rt.Event, error)
}

// Simulator feeds synthetic readings until ctx is canceled.
type Simulator interface {
	Run(ctx context.Context, tick time.Duration)
}

type Service struct {
	Analysis
	Readings
	Simulator
	Authorization

	snapshots *Snapshots
}

// NewService wires the repositories into the concrete services.
func NewService(repos *repository.Repository, cfg config.Config, log *logger.Logger) *Service {
	snapshots := NewSnapshots(repos.Readings, cache.NewTTL[[]rt.Event](cfg.Cache.TTL, cfg.Cache.CleanupInterval))
	decoder := ingest.NewDecoder(cfg.Workshops, nil)

	readings := NewReadingsService(repos.Readings, decoder, newHTTPFetcher(cfg.Source.Timeout, decoder), snapshots, log.Named("readings")).
		WithSourceURL(cfg.Source.URL)

	svc := &Service{
		Analysis:      NewAnalysisService(cfg.Workshops, snapshots, log.Named("analysis")),
		Readings:      readings,
		Authorization: NewAuthService(repos.Operators, cfg.Auth.SigningKey, cfg.Auth.TokenTTL),
		snapshots:     snapshots,
	}
	if ws, ok := cfg.Workshops.Lookup(cfg.Simulator.Workshop); ok {
		svc.Simulator = NewSimulatorService(repos.Readings, snapshots, ws, time.Now().UnixNano(), log.Named("simulator"))
	}
	return svc
}

// Close releases the snapshot cache janitor.
func (s *Service) Close() {
	if s.snapshots != nil {
		s.snapshots.Close()
	}
}
