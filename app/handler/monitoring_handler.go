package handler

import (
	"net/http"

	"agentcoord/internal/coordinator"
	"agentcoord/internal/model"
	"agentcoord/internal/resource"
	"agentcoord/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

// MonitoringHandler exposes realtime pool metrics and resource recommendations
type MonitoringHandler struct {
	coord     *coordinator.Coordinator
	resources *resource.Manager
	tracker   *monitoring.Tracker
}

// NewMonitoringHandler creates monitoring handler
func NewMonitoringHandler(coord *coordinator.Coordinator, resources *resource.Manager, tracker *monitoring.Tracker) *MonitoringHandler {
	return &MonitoringHandler{coord: coord, resources: resources, tracker: tracker}
}

// Realtime returns a point-in-time snapshot of pool health
// @Summary Realtime metrics
// @Tags monitoring
// @Produce json
// @Success 200 {object} monitoring.RealtimeMetrics
// @Router /metrics/realtime [get]
func (h *MonitoringHandler) Realtime(c *gin.Context) {
	ctx := c.Request.Context()

	agents := h.coord.ListAgents(ctx)
	assignable := 0
	for _, a := range agents {
		if a.Status.Assignable() {
			assignable++
		}
	}

	metrics := monitoring.RealtimeMetrics{
		Agents: monitoring.AgentMetrics{
			Total:      len(agents),
			Assignable: assignable,
		},
		Tasks: monitoring.TaskMetrics{
			InQueue:   len(h.coord.ListTasks(ctx, model.TaskStatusQueued)),
			Running:   len(h.coord.ListTasks(ctx, model.TaskStatusRunning)) + len(h.coord.ListTasks(ctx, model.TaskStatusAssigned)),
			Completed: len(h.coord.ListTasks(ctx, model.TaskStatusCompleted)),
			Failed:    len(h.coord.ListTasks(ctx, model.TaskStatusFailed)),
		},
		Performance: monitoring.PerfMetrics{
			AvgTaskLatencyMs: h.tracker.AvgTaskLatency().Milliseconds(),
			PoolUtilization:  h.resources.PoolUtilization(),
		},
	}

	c.JSON(http.StatusOK, metrics)
}

// Recommendations returns advisory resource optimization hints
// @Summary Resource recommendations
// @Tags monitoring
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /recommendations [get]
func (h *MonitoringHandler) Recommendations(c *gin.Context) {
	recs := h.coord.Recommendations(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
}
