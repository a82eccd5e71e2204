// Package metrics exposes prometheus instruments for analysis runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resin_analysis_runs_total",
		Help: "Lot analyses per workshop by outcome",
	}, []string{"workshop", "outcome"}) // outcome=lots|no_completed_lot|error

	completedLots = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resin_completed_lots",
		Help: "Completed lots found by the last analysis",
	}, []string{"workshop"})

	latestLotKg = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resin_latest_lot_kg",
		Help: "Resin consumed by the latest completed lot (kg)",
	}, []string{"workshop"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resin_analysis_duration_seconds",
		Help:    "Wall time of one workshop analysis",
		Buckets: prometheus.DefBuckets,
	}, []string{"workshop"})

	readingsImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resin_readings_imported_total",
		Help: "Readings written to the event store",
	})

	rowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resin_import_rows_skipped_total",
		Help: "CSV rows dropped because their timestamp could not be parsed",
	})

	snapshotLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resin_snapshot_lookups_total",
		Help: "Event snapshot cache lookups by result",
	}, []string{"result"}) // result=hit|miss

	snapshotEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resin_snapshot_cache_entries",
		Help: "Workshop snapshots currently cached",
	})

	snapshotDropped = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resin_snapshot_cache_dropped",
		Help: "Snapshots dropped since start by reason",
	}, []string{"reason"}) // reason=expired|stale
)

// Outcomes for RecordAnalysis.
const (
	OutcomeLots  = "lots"
	OutcomeNoLot = "no_completed_lot"
	OutcomeError = "error"
	resultHit    = "hit"
	resultMiss   = "miss"

	reasonExpired = "expired"
	reasonStale   = "stale"
)

// RecordAnalysis stores the outcome of one workshop analysis.
func RecordAnalysis(workshop string, lots int, latestKg float64, took time.Duration) {
	analysisDuration.WithLabelValues(workshop).Observe(took.Seconds())
	completedLots.WithLabelValues(workshop).Set(float64(lots))
	if lots == 0 {
		analysisRuns.WithLabelValues(workshop, OutcomeNoLot).Inc()
		return
	}
	analysisRuns.WithLabelValues(workshop, OutcomeLots).Inc()
	latestLotKg.WithLabelValues(workshop).Set(latestKg)
}

// RecordAnalysisError counts a failed analysis.
func RecordAnalysisError(workshop string) {
	analysisRuns.WithLabelValues(workshop, OutcomeError).Inc()
}

// RecordImport counts stored and skipped rows of one import.
func RecordImport(stored, skipped int) {
	readingsImported.Add(float64(stored))
	rowsSkipped.Add(float64(skipped))
}

// RecordSnapshotLookup counts cache hits and misses.
func RecordSnapshotLookup(hit bool) {
	if hit {
		snapshotLookups.WithLabelValues(resultHit).Inc()
		return
	}
	snapshotLookups.WithLabelValues(resultMiss).Inc()
}

// RecordSnapshotCache publishes the snapshot cache size and its cumulative
// expired and stale drops.
func RecordSnapshotCache(entries int, expired, stale int64) {
	snapshotEntries.Set(float64(entries))
	snapshotDropped.WithLabelValues(reasonExpired).Set(float64(expired))
	snapshotDropped.WithLabelValues(reasonStale).Set(float64(stale))
}
