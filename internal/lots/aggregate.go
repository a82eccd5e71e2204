package lots

import (
	"strconv"

	rt "resin_tracker"
)

const (
	// UnknownLot labels a lot whose id is zero or negative.
	UnknownLot = "Unknown"

	// counters report grams-equivalent raw units
	rawPerKg = 1000.0
)

// Aggregate builds one record per interval from its raw total. totals[i]
// belongs to intervals[i]; a missing entry counts as zero.
func Aggregate(intervals []rt.LotInterval, totals []float64) []rt.ConsumptionRecord {
	out := make([]rt.ConsumptionRecord, 0, len(intervals))
	for i, iv := range intervals {
		var raw float64
		if i < len(totals) {
			raw = totals[i]
		}
		out = append(out, rt.ConsumptionRecord{
			LotID:    LotLabel(iv.Start.LotID),
			Start:    iv.Start.Time,
			End:      iv.End.Time,
			Duration: iv.End.Time.Sub(iv.Start.Time),
			TotalKg:  ToKg(raw),
		})
	}
	return out
}

// LotLabel renders a lot id, or UnknownLot when the id is not positive.
func LotLabel(id float64) string {
	if id > 0 {
		return strconv.FormatFloat(id, 'f', 0, 64)
	}
	return UnknownLot
}

// ToKg converts raw counter units to kilograms.
func ToKg(raw float64) float64 {
	return raw / rawPerKg
}
