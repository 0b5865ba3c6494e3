package handler

import (
	"net/http"

	"agentcoord/internal/coordinator"
	"agentcoord/internal/model"
	"agentcoord/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AgentHandler handles agent lifecycle operations
type AgentHandler struct {
	coord *coordinator.Coordinator
}

// NewAgentHandler creates agent handler
func NewAgentHandler(coord *coordinator.Coordinator) *AgentHandler {
	return &AgentHandler{coord: coord}
}

// Register registers a new agent
// @Summary Register agent
// @Description Register an agent with its capabilities and declared resource limits
// @Tags agents
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Agent descriptor"
// @Success 200 {object} model.RegisterResponse
// @Router /agents [post]
func (h *AgentHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorCtx(c.Request.Context(), "invalid register request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	agentID, err := h.coord.Register(c.Request.Context(), &req)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to register agent: %v", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.RegisterResponse{AgentID: agentID})
}

// Deregister removes an agent, requeueing or draining its active tasks
// @Summary Deregister agent
// @Description Remove an agent; with drain=true it finishes active tasks first
// @Tags agents
// @Param agent_id path string true "Agent ID"
// @Param drain query bool false "Finish active tasks before retiring"
// @Success 200 {object} map[string]string
// @Router /agents/{agent_id} [delete]
func (h *AgentHandler) Deregister(c *gin.Context) {
	agentID := c.Param("agent_id")
	if agentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent_id required"})
		return
	}
	drain := c.Query("drain") == "true"

	if err := h.coord.Deregister(c.Request.Context(), agentID, drain); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "agent deregistered"})
}

// Heartbeat processes a periodic agent heartbeat
// @Summary Agent heartbeat
// @Description Report liveness, active task IDs and a resource usage snapshot
// @Tags agents
// @Accept json
// @Produce json
// @Param agent_id path string true "Agent ID"
// @Param request body model.HeartbeatRequest true "Heartbeat payload"
// @Success 200 {object} model.HeartbeatResponse
// @Router /agents/{agent_id}/heartbeat [post]
func (h *AgentHandler) Heartbeat(c *gin.Context) {
	agentID := c.Param("agent_id")
	if agentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent_id required"})
		return
	}

	var req model.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorCtx(c.Request.Context(), "invalid heartbeat request, agent_id: %s, error: %v", agentID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.AgentID = agentID

	resp, err := h.coord.HandleHeartbeat(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// List lists all known agents
// @Summary List agents
// @Tags agents
// @Produce json
// @Success 200 {array} model.AgentView
// @Router /agents [get]
func (h *AgentHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": h.coord.ListAgents(c.Request.Context())})
}

// Get returns one agent snapshot
// @Summary Get agent
// @Tags agents
// @Produce json
// @Param agent_id path string true "Agent ID"
// @Success 200 {object} model.Agent
// @Router /agents/{agent_id} [get]
func (h *AgentHandler) Get(c *gin.Context) {
	agentID := c.Param("agent_id")
	if agentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent_id required"})
		return
	}

	agent, err := h.coord.GetAgent(c.Request.Context(), agentID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, agent)
}
