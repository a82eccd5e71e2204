package handlers

import (
	"errors"
	"net/http"
	"strings"

	rt "resin_tracker"
	"resin_tracker/internal/config"
	"resin_tracker/internal/ingest"
	"resin_tracker/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errMissingFile   = "missing multipart field 'file'"
	errImportFailed  = "failed to import readings"
	errFetchFailed   = "failed to fetch remote export"
	errListReadings  = "failed to load readings"
	readingsTagQuery = "tag"
)

func findWorkshop(workshops []rt.WorkshopConfig, name string) (rt.WorkshopConfig, bool) {
	return config.Workshops(workshops).Lookup(name)
}

// @Summary      List readings
// @Description  Raw historian readings in time order. 'workshop' expands to its lot and counter tags; 'tag' may repeat.
// @Tags         readings
// @Produce      json
// @Param        from      query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to        query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        workshop  query   string  false  "Workshop name"  example(FX1)
// @Param        tag       query   []string  false  "Tag filter"  collectionFormat(multi)
// @Success      200   {object}  map[string]interface{}  "count, readings"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/readings [get]
// @Security     BearerAuth
func (h *Handler) getReadings(c *gin.Context) {
	rf, msg := parseRange(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	tags := c.QueryArray(readingsTagQuery)
	if name := strings.TrimSpace(c.Query("workshop")); name != "" {
		ws, ok := findWorkshop(h.services.Analysis.Workshops(), name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": errUnknownWorkshop})
			return
		}
		tags = append(tags, config.Tags(ws)...)
	}

	events, err := h.services.Readings.List(c.Request.Context(), service.ReadingFilter{
		From: rf.From,
		To:   rf.To,
		Tags: tags,
	})
	if err != nil {
		if service.IsInvalidRange(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errRangeOrder})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errListReadings, "readings_list_failed", err, "from", rf.From, "to", rf.To)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(events),
		"readings": events,
	})
}

// @Summary      Import a CSV export
// @Description  Columns TagName, Valeur and DateTime (or Date_Cible + Heure); ',' or ';' separated.
// @Tags         readings
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Historian CSV export"
// @Success      200   {object}  ingest.Stats
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/readings/import [post]
// @Security     BearerAuth
func (h *Handler) importReadings(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMissingFile})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errImportFailed, "readings_upload_open_failed", err, "file", fh.Filename)
		return
	}
	defer f.Close()

	stats, err := h.services.Readings.Import(c.Request.Context(), f)
	if err != nil {
		if isDecodeError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errImportFailed, "readings_import_failed", err, "file", fh.Filename)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type fetchRequest struct {
	URL string `json:"url" example:"http://historian.local/export.csv"`
}

// @Summary      Fetch a remote CSV export
// @Description  An empty url uses the configured source.url.
// @Tags         readings
// @Accept       json
// @Produce      json
// @Param        body  body      fetchRequest  false  "Export location"
// @Success      200   {object}  ingest.Stats
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/readings/fetch [post]
// @Security     BearerAuth
func (h *Handler) fetchReadings(c *gin.Context) {
	var req fetchRequest
	if c.Request.ContentLength > 0 {
		if ok := h.bindJSONOrBadRequest(c, &req); !ok {
			return
		}
	}

	stats, err := h.services.Readings.ImportURL(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, service.ErrNoSource) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusBadGateway, errFetchFailed, "readings_fetch_failed", err, "url", req.URL)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func isDecodeError(err error) bool {
	return errors.Is(err, ingest.ErrNoHeader) || errors.Is(err, ingest.ErrMissingColumn)
}
