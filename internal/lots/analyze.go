package lots

import (
	rt "resin_tracker"
)

// Analyze computes the consumption of every completed lot of one workshop.
// It works on a time-ordered copy and never mutates events.
func Analyze(events []rt.Event, cfg rt.WorkshopConfig) []rt.ConsumptionRecord {
	ordered := sortedCopy(events)
	intervals := Intervals(Segment(ordered, cfg.LotTag))
	totals := make([]float64, len(intervals))
	for i, iv := range intervals {
		totals[i] = AccumulateTags(ordered, cfg.CounterTags, iv)
	}
	return Aggregate(intervals, totals)
}

// Breakdown splits each completed lot into per-family kilograms. family maps
// a counter tag to its group name.
func Breakdown(events []rt.Event, cfg rt.WorkshopConfig, family func(tag string) string) []rt.LotBreakdown {
	ordered := sortedCopy(events)
	intervals := Intervals(Segment(ordered, cfg.LotTag))
	out := make([]rt.LotBreakdown, 0, len(intervals))
	for _, iv := range intervals {
		groups := make(map[string]float64)
		for _, tag := range cfg.CounterTags {
			groups[family(tag)] += ToKg(Accumulate(ordered, tag, iv))
		}
		out = append(out, rt.LotBreakdown{
			LotID:    LotLabel(iv.Start.LotID),
			Start:    iv.Start.Time,
			PerGroup: groups,
		})
	}
	return out
}

// SumGroups adds up the per-family kilograms of every lot, giving the
// workshop totals reported to SAP.
func SumGroups(breakdowns []rt.LotBreakdown) map[string]float64 {
	totals := make(map[string]float64)
	for _, b := range breakdowns {
		for group, kg := range b.PerGroup {
			totals[group] += kg
		}
	}
	return totals
}

// Latest returns the record with the most recent start.
func Latest(records []rt.ConsumptionRecord) (rt.ConsumptionRecord, bool) {
	if len(records) == 0 {
		return rt.ConsumptionRecord{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.Start.After(best.Start) {
			best = r
		}
	}
	return best, true
}

func sortedCopy(events []rt.Event) []rt.Event {
	cp := make([]rt.Event, len(events))
	copy(cp, events)
	sortByTime(cp)
	return cp
}
