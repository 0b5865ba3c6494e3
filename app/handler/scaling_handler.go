package handler

import (
	"net/http"
	"strconv"
	"time"

	"agentcoord/internal/scaling"
	"agentcoord/pkg/logger"
	"agentcoord/pkg/store/mysql"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ScalingHandler exposes scaling decisions: recent in-memory history, the
// persisted audit trail, and a live decision stream.
type ScalingHandler struct {
	scaler *scaling.Manager
	events *mysql.ScalingEventRepository
}

// NewScalingHandler creates scaling handler. The event repository is nil when
// MySQL persistence is disabled.
func NewScalingHandler(scaler *scaling.Manager, events *mysql.ScalingEventRepository) *ScalingHandler {
	return &ScalingHandler{scaler: scaler, events: events}
}

// Decisions returns the most recent scaling decisions
// @Summary Recent scaling decisions
// @Tags scaling
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /scaling/decisions [get]
func (h *ScalingHandler) Decisions(c *gin.Context) {
	decisions := h.scaler.RecentDecisions()
	c.JSON(http.StatusOK, gin.H{"decisions": decisions, "count": len(decisions)})
}

// History returns the persisted scaling event audit trail
// @Summary Scaling event history
// @Tags scaling
// @Produce json
// @Param limit query int false "Maximum events to return"
// @Success 200 {object} map[string]interface{}
// @Router /scaling/history [get]
func (h *ScalingHandler) History(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event persistence disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	events, err := h.events.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list scaling events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// Stream pushes scaling decisions over a websocket as they happen
// @Summary Live scaling decision stream
// @Tags scaling
// @Router /scaling/stream [get]
func (h *ScalingHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	decisions := h.scaler.Subscribe()
	defer h.scaler.Unsubscribe(decisions)

	// Drain client frames so close handshakes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case decision, ok := <-decisions:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(decision); err != nil {
				logger.DebugCtx(c.Request.Context(), "scaling stream closed: %v", err)
				return
			}
		}
	}
}
