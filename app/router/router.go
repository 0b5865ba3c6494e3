package router

import (
	"agentcoord/app/handler"
	"agentcoord/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	agentHandler      *handler.AgentHandler
	taskHandler       *handler.TaskHandler
	scalingHandler    *handler.ScalingHandler
	monitoringHandler *handler.MonitoringHandler
}

// NewRouter creates a new Router
func NewRouter(agentHandler *handler.AgentHandler, taskHandler *handler.TaskHandler, scalingHandler *handler.ScalingHandler, monitoringHandler *handler.MonitoringHandler) *Router {
	return &Router{
		agentHandler:      agentHandler,
		taskHandler:       taskHandler,
		scalingHandler:    scalingHandler,
		monitoringHandler: monitoringHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	v1 := engine.Group("/v1")
	v1.Use(middleware.AuthMiddleware())
	{
		// Agent lifecycle
		agents := v1.Group("/agents")
		{
			agents.POST("", r.agentHandler.Register)
			agents.GET("", r.agentHandler.List)
			agents.GET("/:agent_id", r.agentHandler.Get)
			agents.DELETE("/:agent_id", r.agentHandler.Deregister)
			agents.POST("/:agent_id/heartbeat", r.agentHandler.Heartbeat)
		}

		// Task submission and tracking
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", r.taskHandler.Submit)
			tasks.GET("", r.taskHandler.List)
			tasks.GET("/:task_id", r.taskHandler.Status)
			tasks.POST("/outcome", r.taskHandler.Outcome)
		}

		// Scaling decisions
		scaling := v1.Group("/scaling")
		{
			scaling.GET("/decisions", r.scalingHandler.Decisions)
			scaling.GET("/history", r.scalingHandler.History)
			scaling.GET("/stream", r.scalingHandler.Stream)
		}

		// Monitoring
		v1.GET("/metrics/realtime", r.monitoringHandler.Realtime)
		v1.GET("/recommendations", r.monitoringHandler.Recommendations)
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
