package service

import (
	"context"
	"math/rand"
	"time"

	rt "resin_tracker"
	"resin_tracker/internal/logger"
	"resin_tracker/internal/repository"

	"github.com/google/uuid"
)

// ----------- Simulation constants -----------
const (
	CounterRollover = 1_000_000.0 // raw counter units before a reset
	MaxFlowPerTick  = 5_000.0     // raw units a counter can advance per tick
	TicksPerLot     = 12          // ticks before the lot id changes

	peakLead = time.Millisecond
)

// SimulatorService writes a synthetic plant feed for one workshop: the lot
// marker every tick and one sample per counter. A counter passing
// CounterRollover emits a peak sample at the rollover value, then resets.
type SimulatorService struct {
	readings  repository.Readings
	snapshots invalidator
	ws        rt.WorkshopConfig
	rng       *rand.Rand
	log       *logger.Logger

	lotID      float64
	ticksInLot int
	counters   map[string]float64
}

// NewSimulatorService returns a simulator starting at lot 1.
func NewSimulatorService(readings repository.Readings, snapshots invalidator, ws rt.WorkshopConfig, seed int64, log *logger.Logger) *SimulatorService {
	if log == nil {
		log = logger.Nop()
	}
	return &SimulatorService{
		readings:  readings,
		snapshots: snapshots,
		ws:        ws,
		rng:       rand.New(rand.NewSource(seed)),
		log:       log,
		lotID:     1,
		counters:  make(map[string]float64, len(ws.CounterTags)),
	}
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			events := s.step(now.UTC())
			if _, err := s.readings.AppendBatch(ctx, events); err != nil {
				if ctx.Err() == nil {
					s.log.Errorw("simulator_append_failed", "workshop", s.ws.Name, "readings", len(events), "err", err)
				}
				continue
			}
			if s.snapshots != nil {
				s.snapshots.Invalidate()
			}
		}
	}
}

// step advances the plant by one tick and returns the readings it produced.
func (s *SimulatorService) step(now time.Time) []rt.Event {
	if s.ticksInLot >= TicksPerLot {
		s.lotID++
		s.ticksInLot = 0
	}
	s.ticksInLot++

	events := make([]rt.Event, 0, len(s.ws.CounterTags)+1)
	events = append(events, rt.Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Tag:       s.ws.LotTag,
		Value:     s.lotID,
		Kind:      rt.KindLotChange,
	})

	for _, tag := range s.ws.CounterTags {
		next := s.counters[tag] + s.rng.Float64()*MaxFlowPerTick
		if next >= CounterRollover {
			// the peak right before the reset keeps the wrapped flow countable
			events = append(events, rt.Event{
				ID:        uuid.NewString(),
				Timestamp: now.Add(-peakLead),
				Tag:       tag,
				Value:     CounterRollover,
				Kind:      rt.KindCounterSample,
			})
			next -= CounterRollover
		}
		s.counters[tag] = next
		events = append(events, rt.Event{
			ID:        uuid.NewString(),
			Timestamp: now,
			Tag:       tag,
			Value:     next,
			Kind:      rt.KindCounterSample,
		})
	}
	return events
}
