package resin_tracker

import (
	"math"
	"time"
)

// EventKind distinguishes lot markers from counter readings.
type EventKind string

const (
	KindLotChange     EventKind = "LOT_CHANGE"
	KindCounterSample EventKind = "COUNTER_SAMPLE"
)

// Event is one timestamped reading from the plant historian.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Tag       string    `json:"tag"`
	Value     float64   `json:"value"`
	Kind      EventKind `json:"kind"`
}

// WorkshopConfig names the lot tag and the resin counters of one production line.
type WorkshopConfig struct {
	Name        string   `json:"name" mapstructure:"name"`
	LotTag      string   `json:"lot_tag" mapstructure:"lot_tag"`
	CounterTags []string `json:"counter_tags" mapstructure:"counter_tags"`
}

// Counter families, as split on the SAP totals sheet.
const (
	FamilyISO   = "ISO"
	FamilyPOL   = "POL"
	FamilyOther = "OTHER"
)

// LotBoundary is a confirmed lot-change transition.
type LotBoundary struct {
	Time  time.Time `json:"time"`
	LotID float64   `json:"lot_id"`
}

// LotInterval spans one completed lot, from its boundary to the next one.
type LotInterval struct {
	Start LotBoundary `json:"start"`
	End   LotBoundary `json:"end"`
}

// ConsumptionRecord is the resin consumed by one completed lot.
type ConsumptionRecord struct {
	LotID    string        `json:"lot_id"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
	TotalKg  float64       `json:"total_kg"`
}

// DisplayDuration is the lot duration with sub-second precision trimmed.
func (r ConsumptionRecord) DisplayDuration() time.Duration {
	return r.Duration.Truncate(time.Second)
}

// RoundedKg rounds the total to the 2 decimals shown on reports.
func (r ConsumptionRecord) RoundedKg() float64 {
	return math.Round(r.TotalKg*100) / 100
}

// WorkshopReport groups the completed lots of one workshop.
type WorkshopReport struct {
	Workshop string              `json:"workshop"`
	Records  []ConsumptionRecord `json:"records"`
}

// LotBreakdown splits a lot total per counter family (ISO / POL).
type LotBreakdown struct {
	LotID    string             `json:"lot_id"`
	Start    time.Time          `json:"start"`
	PerGroup map[string]float64 `json:"per_group_kg"`
}

// Operator is a dashboard account.
type Operator struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don’t expose hash
}
