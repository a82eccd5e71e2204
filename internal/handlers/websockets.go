package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	rt "resin_tracker"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms

	wsTypeLatestLot = "latest_lot"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // dashboard is served from another origin on the plant LAN
}

// @Summary      Latest-lot KPI stream
// @Description  WebSocket. Sends {"type":"latest_lot","data":{...}} on connect and every interval.
// @Tags         lots
// @Param        workshop     query  string  true   "Workshop name"  example(FX1)
// @Param        interval     query  string  false  "Push interval, e.g. 2s (max 10s)"
// @Param        interval_ms  query  int     false  "Push interval in ms (max 10000)"
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	name := strings.TrimSpace(c.Query("workshop"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'workshop' query parameter"})
		return
	}
	ws, ok := findWorkshop(h.services.Analysis.Workshops(), name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errUnknownWorkshop})
		return
	}
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := h.sendLatestLot(c.Request.Context(), conn, ws); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "workshop", ws.Name, "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendLatestLot(c.Request.Context(), conn, ws); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "workshop", ws.Name, "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendLatestLot computes the KPI and writes it with a write deadline. A
// failed computation is reported to the client before the stream closes.
func (h *Handler) sendLatestLot(ctx context.Context, conn *websocket.Conn, ws rt.WorkshopConfig) error {
	rec, ok, err := h.services.Analysis.LatestLot(ctx, ws.Name)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_latest_lot_failed", "workshop", ws.Name, "err", err)
		}
		_ = conn.WriteJSON(wsEnvelope{Type: "error", Error: errAnalysisFailed})
		return err
	}
	return conn.WriteJSON(wsEnvelope{Type: wsTypeLatestLot, Data: newLatestLotPayload(ws.Name, rec, ok)})
}
