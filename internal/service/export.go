package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	rt "resin_tracker"
)

var exportHeader = []string{"lot_id", "start", "end", "duration", "total_kg"}

// WriteCSV writes records as a flat sheet: RFC3339 times, whole-second
// durations and kilograms rounded to 2 decimals.
func WriteCSV(w io.Writer, records []rt.ConsumptionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.LotID,
			r.Start.Format(time.RFC3339),
			r.End.Format(time.RFC3339),
			r.DisplayDuration().String(),
			strconv.FormatFloat(r.RoundedKg(), 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write lot %s: %w", r.LotID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
