package handler

import (
	"net/http"

	"agentcoord/internal/coordinator"
	"agentcoord/internal/model"
	"agentcoord/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task operations
type TaskHandler struct {
	coord *coordinator.Coordinator
}

// NewTaskHandler creates task handler
func NewTaskHandler(coord *coordinator.Coordinator) *TaskHandler {
	return &TaskHandler{coord: coord}
}

// Submit enqueues a task
// @Summary Submit task
// @Description Enqueue a task; assignment happens asynchronously
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body model.SubmitRequest true "Task request"
// @Success 200 {object} model.SubmitResponse
// @Router /tasks [post]
func (h *TaskHandler) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorCtx(c.Request.Context(), "invalid submit request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	resp, err := h.coord.Submit(c.Request.Context(), &req)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to submit task: %v", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Status gets task status
// @Summary Get task status
// @Tags tasks
// @Produce json
// @Param task_id path string true "Task ID"
// @Success 200 {object} model.StatusResponse
// @Router /tasks/{task_id} [get]
func (h *TaskHandler) Status(c *gin.Context) {
	taskID := c.Param("task_id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id required"})
		return
	}

	resp, err := h.coord.TaskStatus(c.Request.Context(), taskID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Outcome records a worker-reported task outcome
// @Summary Report task outcome
// @Description Report completion or failure for an assigned task
// @Tags tasks
// @Accept json
// @Param request body model.OutcomeRequest true "Outcome payload"
// @Success 200 {object} map[string]string
// @Router /tasks/outcome [post]
func (h *TaskHandler) Outcome(c *gin.Context) {
	var req model.OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorCtx(c.Request.Context(), "invalid outcome request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Outcome != model.TaskOutcomeCompleted && req.Outcome != model.TaskOutcomeFailed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome must be Completed or Failed"})
		return
	}

	if err := h.coord.HandleOutcome(c.Request.Context(), &req); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "outcome recorded"})
}

// List lists tasks with optional status filtering
// @Summary List tasks
// @Tags tasks
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	status := model.TaskStatus(c.Query("status"))
	tasks := h.coord.ListTasks(c.Request.Context(), status)
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}
