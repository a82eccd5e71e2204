package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	rt "resin_tracker"
	"resin_tracker/internal/config"
	"resin_tracker/internal/logger"
	"resin_tracker/internal/lots"
	"resin_tracker/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// ErrUnknownWorkshop is returned for a name missing from the workshop table.
var ErrUnknownWorkshop = config.ErrUnknownWorkshop

// eventSource is what the analysis needs from Snapshots. It returns every
// reading of the workshop's tags.
type eventSource interface {
	Load(ctx context.Context, ws rt.WorkshopConfig) ([]rt.Event, error)
}

type AnalysisService struct {
	workshops config.Workshops
	source    eventSource
	log       *logger.Logger
}

func NewAnalysisService(workshops config.Workshops, source eventSource, log *logger.Logger) *AnalysisService {
	return &AnalysisService{workshops: workshops, source: source, log: log}
}

// Workshops returns the configured table in display order.
func (s *AnalysisService) Workshops() []rt.WorkshopConfig {
	out := make([]rt.WorkshopConfig, len(s.workshops))
	copy(out, s.workshops)
	return out
}

// AnalyzeWorkshop returns the completed lots of one workshop. An empty
// record list means no lot has completed yet; it is not an error.
func (s *AnalysisService) AnalyzeWorkshop(ctx context.Context, name string, f RangeFilter) (rt.WorkshopReport, error) {
	ws, ok := s.workshops.Lookup(name)
	if !ok {
		return rt.WorkshopReport{}, fmt.Errorf("%q: %w", name, ErrUnknownWorkshop)
	}
	f, err := f.normalize()
	if err != nil {
		return rt.WorkshopReport{}, err
	}
	return s.analyze(ctx, ws, f)
}

// AnalyzeAll recomputes every workshop independently and concurrently.
// Reports follow the table order.
func (s *AnalysisService) AnalyzeAll(ctx context.Context, f RangeFilter) ([]rt.WorkshopReport, error) {
	f, err := f.normalize()
	if err != nil {
		return nil, err
	}

	reports := make([]rt.WorkshopReport, len(s.workshops))
	g, gctx := errgroup.WithContext(ctx)
	for i, ws := range s.workshops {
		g.Go(func() error {
			rep, err := s.analyze(gctx, ws, f)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// LatestLot returns the most recently started completed lot.
func (s *AnalysisService) LatestLot(ctx context.Context, name string) (rt.ConsumptionRecord, bool, error) {
	rep, err := s.AnalyzeWorkshop(ctx, name, RangeFilter{})
	if err != nil {
		return rt.ConsumptionRecord{}, false, err
	}
	rec, ok := lots.Latest(rep.Records)
	return rec, ok, nil
}

// Breakdown splits each completed lot into ISO / POL kilograms.
func (s *AnalysisService) Breakdown(ctx context.Context, name string, f RangeFilter) ([]rt.LotBreakdown, error) {
	ws, ok := s.workshops.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownWorkshop)
	}
	f, err := f.normalize()
	if err != nil {
		return nil, err
	}
	events, err := s.source.Load(ctx, ws)
	if err != nil {
		return nil, err
	}
	all := lots.Breakdown(events, ws, config.Family)
	out := make([]rt.LotBreakdown, 0, len(all))
	for _, b := range all {
		if f.contains(b.Start) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *AnalysisService) analyze(ctx context.Context, ws rt.WorkshopConfig, f RangeFilter) (rt.WorkshopReport, error) {
	started := time.Now()

	events, err := s.source.Load(ctx, ws)
	if err != nil {
		metrics.RecordAnalysisError(ws.Name)
		if s.log != nil && !errors.Is(err, context.Canceled) {
			s.log.Errorw("analysis_load_failed", "workshop", ws.Name, "err", err)
		}
		return rt.WorkshopReport{}, err
	}

	records := inRange(lots.Analyze(events, ws), f)

	var latestKg float64
	if rec, ok := lots.Latest(records); ok {
		latestKg = rec.RoundedKg()
	}
	metrics.RecordAnalysis(ws.Name, len(records), latestKg, time.Since(started))
	if s.log != nil {
		if len(records) == 0 {
			s.log.Infow("no_completed_lot", "workshop", ws.Name, "readings", len(events))
		} else {
			s.log.Debugw("analysis_done", "workshop", ws.Name, "lots", len(records), "readings", len(events))
		}
	}
	return rt.WorkshopReport{Workshop: ws.Name, Records: records}, nil
}

// inRange keeps the records whose lot started within f.
func inRange(records []rt.ConsumptionRecord, f RangeFilter) []rt.ConsumptionRecord {
	if f.From.IsZero() && f.To.IsZero() {
		return records
	}
	out := make([]rt.ConsumptionRecord, 0, len(records))
	for _, r := range records {
		if f.contains(r.Start) {
			out = append(out, r)
		}
	}
	return out
}
