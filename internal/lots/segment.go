// Package lots reconstructs per-lot resin consumption from lot markers and
// cumulative counter samples.
package lots

import (
	"sort"

	rt "resin_tracker"
)

// Segment returns the lot-change transitions recorded on lotTag, in time order.
//
// A marker is kept only when its value differs from the previously kept one,
// so repeated pings of the same lot id never split a lot. Ids are compared
// with raw float equality; historians publish them as integer-valued floats.
func Segment(events []rt.Event, lotTag string) []rt.LotBoundary {
	markers := make([]rt.Event, 0, 16)
	for _, e := range events {
		if e.Tag == lotTag && e.Kind == rt.KindLotChange {
			markers = append(markers, e)
		}
	}
	sortByTime(markers)

	out := make([]rt.LotBoundary, 0, len(markers))
	for _, m := range markers {
		if n := len(out); n > 0 && out[n-1].LotID == m.Value {
			continue
		}
		out = append(out, rt.LotBoundary{Time: m.Timestamp, LotID: m.Value})
	}
	return out
}

// Intervals pairs consecutive boundaries. The last boundary opens the lot
// that is still running and never produces an interval on its own.
func Intervals(boundaries []rt.LotBoundary) []rt.LotInterval {
	if len(boundaries) < 2 {
		return nil
	}
	out := make([]rt.LotInterval, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		out = append(out, rt.LotInterval{Start: boundaries[i], End: boundaries[i+1]})
	}
	return out
}

func sortByTime(events []rt.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
