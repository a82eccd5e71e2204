package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	rt "resin_tracker"
	"resin_tracker/internal/lots"
	"resin_tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK             = "ok"
	statusNoCompletedLot = "no_completed_lot"

	errUnknownWorkshop = "unknown workshop"
	errAnalysisFailed  = "failed to analyze lots"
	errExportFailed    = "failed to export lots"
)

// lotView is a consumption record as shown on the dashboard.
type lotView struct {
	LotID       string    `json:"lot_id" example:"104233"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Duration    string    `json:"duration" example:"2h15m0s"`
	DurationSec float64   `json:"duration_s" example:"8100"`
	TotalKg     float64   `json:"total_kg" example:"412.37"`
}

func newLotView(r rt.ConsumptionRecord) lotView {
	d := r.DisplayDuration()
	return lotView{
		LotID:       r.LotID,
		Start:       r.Start,
		End:         r.End,
		Duration:    d.String(),
		DurationSec: d.Seconds(),
		TotalKg:     r.TotalKg,
	}
}

func newLotViews(records []rt.ConsumptionRecord) []lotView {
	out := make([]lotView, 0, len(records))
	for _, r := range records {
		out = append(out, newLotView(r))
	}
	return out
}

// latestLotPayload is shared by the REST KPI and the websocket stream.
type latestLotPayload struct {
	Workshop string   `json:"workshop"`
	Status   string   `json:"status" example:"ok"`
	Lot      *lotView `json:"lot,omitempty"`
}

func newLatestLotPayload(workshop string, rec rt.ConsumptionRecord, ok bool) latestLotPayload {
	if !ok {
		return latestLotPayload{Workshop: workshop, Status: statusNoCompletedLot}
	}
	v := newLotView(rec)
	return latestLotPayload{Workshop: workshop, Status: statusOK, Lot: &v}
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// analysisError maps service errors onto 404 / 400 / 500.
func (h *Handler) analysisError(c *gin.Context, err error, logKey, workshop string) {
	switch {
	case errors.Is(err, service.ErrUnknownWorkshop):
		c.JSON(http.StatusNotFound, gin.H{"error": errUnknownWorkshop})
	case service.IsInvalidRange(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": errRangeOrder})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errAnalysisFailed, logKey, err, "workshop", workshop)
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List workshops
// @Tags         workshops
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, workshops"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/workshops [get]
// @Security     BearerAuth
func (h *Handler) listWorkshops(c *gin.Context) {
	ws := h.services.Analysis.Workshops()
	c.JSON(http.StatusOK, gin.H{
		"count":     len(ws),
		"workshops": ws,
	})
}

// @Summary      Completed lots of every workshop
// @Tags         lots
// @Produce      json
// @Param        from  query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"
// @Param        to    query   string  false  "End of range; date-only treated as end of day"
// @Success      200   {object}  map[string]interface{}  "workshops"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/lots [get]
// @Security     BearerAuth
func (h *Handler) getAllLots(c *gin.Context) {
	f, msg := parseRange(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	reports, err := h.services.Analysis.AnalyzeAll(c.Request.Context(), f)
	if err != nil {
		h.analysisError(c, err, "lots_analyze_all_failed", "")
		return
	}

	out := make([]gin.H, 0, len(reports))
	for _, rep := range reports {
		out = append(out, gin.H{
			"workshop": rep.Workshop,
			"count":    len(rep.Records),
			"lots":     newLotViews(rep.Records),
		})
	}
	c.JSON(http.StatusOK, gin.H{"workshops": out})
}

// @Summary      Completed lots of one workshop
// @Description  A lot is complete once the next lot has started. An empty list means no lot has completed yet.
// @Tags         lots
// @Produce      json
// @Param        name  path    string  true   "Workshop name"  example(FX1)
// @Param        from  query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"
// @Param        to    query   string  false  "End of range; date-only treated as end of day"
// @Success      200   {object}  map[string]interface{}  "workshop, count, lots"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/workshops/{name}/lots [get]
// @Security     BearerAuth
func (h *Handler) getLots(c *gin.Context) {
	name := c.Param("name")
	f, msg := parseRange(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	rep, err := h.services.Analysis.AnalyzeWorkshop(c.Request.Context(), name, f)
	if err != nil {
		h.analysisError(c, err, "lots_analyze_failed", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"workshop": rep.Workshop,
		"count":    len(rep.Records),
		"lots":     newLotViews(rep.Records),
	})
}

// @Summary      Latest completed lot
// @Tags         lots
// @Produce      json
// @Param        name  path    string  true  "Workshop name"  example(FX1)
// @Success      200   {object}  latestLotPayload
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/workshops/{name}/lots/latest [get]
// @Security     BearerAuth
func (h *Handler) getLatestLot(c *gin.Context) {
	name := c.Param("name")
	rec, ok, err := h.services.Analysis.LatestLot(c.Request.Context(), name)
	if err != nil {
		h.analysisError(c, err, "lots_latest_failed", name)
		return
	}
	c.JSON(http.StatusOK, newLatestLotPayload(canonicalName(h.services.Analysis.Workshops(), name), rec, ok))
}

// @Summary      Per-family split of completed lots
// @Description  Kilograms per counter family (ISO / POL) for every completed lot, plus the workshop totals.
// @Tags         lots
// @Produce      json
// @Param        name  path    string  true   "Workshop name"  example(FX1)
// @Param        from  query   string  false  "Start of range"
// @Param        to    query   string  false  "End of range"
// @Success      200   {object}  map[string]interface{}  "workshop, lots, totals_kg"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/workshops/{name}/lots/breakdown [get]
// @Security     BearerAuth
func (h *Handler) getBreakdown(c *gin.Context) {
	name := c.Param("name")
	f, msg := parseRange(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	breakdowns, err := h.services.Analysis.Breakdown(c.Request.Context(), name, f)
	if err != nil {
		h.analysisError(c, err, "lots_breakdown_failed", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"workshop":  canonicalName(h.services.Analysis.Workshops(), name),
		"lots":      breakdowns,
		"totals_kg": lots.SumGroups(breakdowns),
	})
}

// @Summary      Export completed lots as CSV
// @Tags         lots
// @Produce      text/csv
// @Param        name  path    string  true   "Workshop name"  example(FX1)
// @Param        from  query   string  false  "Start of range"
// @Param        to    query   string  false  "End of range"
// @Success      200   {string}  string  "lot_id,start,end,duration,total_kg"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/workshops/{name}/lots/export [get]
// @Security     BearerAuth
func (h *Handler) exportLots(c *gin.Context) {
	name := c.Param("name")
	f, msg := parseRange(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	rep, err := h.services.Analysis.AnalyzeWorkshop(c.Request.Context(), name, f)
	if err != nil {
		h.analysisError(c, err, "lots_export_failed", name)
		return
	}

	var buf bytes.Buffer
	if err := service.WriteCSV(&buf, rep.Records); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errExportFailed, "lots_export_write_failed", err, "workshop", rep.Workshop)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Workshop+"_lots.csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// canonicalName returns the configured spelling of name, or name itself.
func canonicalName(workshops []rt.WorkshopConfig, name string) string {
	if ws, ok := findWorkshop(workshops, name); ok {
		return ws.Name
	}
	return name
}
