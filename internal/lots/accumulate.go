package lots

import (
	rt "resin_tracker"
)

// Accumulate returns the raw quantity counted by tag during iv.
//
// Samples are selected with start <= t <= end, so a sample stamped exactly on
// a boundary belongs to both adjacent lots.
//
// A drop between two samples is a hardware rollover. The instrumentation
// always snapshots the pre-reset peak, so the first post-reset value is the
// whole quantity counted since the reset and is added as is.
func Accumulate(events []rt.Event, tag string, iv rt.LotInterval) float64 {
	samples := make([]rt.Event, 0, 32)
	for _, e := range events {
		if e.Tag != tag || e.Kind != rt.KindCounterSample {
			continue
		}
		if e.Timestamp.Before(iv.Start.Time) || e.Timestamp.After(iv.End.Time) {
			continue
		}
		samples = append(samples, e)
	}
	if len(samples) < 2 {
		return 0
	}
	sortByTime(samples)

	var total float64
	for i := 0; i+1 < len(samples); i++ {
		total += increment(samples[i].Value, samples[i+1].Value)
	}
	return total
}

// AccumulateTags sums Accumulate over every tag, in tag order.
func AccumulateTags(events []rt.Event, tags []string, iv rt.LotInterval) float64 {
	var total float64
	for _, tag := range tags {
		total += Accumulate(events, tag, iv)
	}
	return total
}

func increment(curr, next float64) float64 {
	if next >= curr {
		return next - curr
	}
	// rollover
	return next
}
