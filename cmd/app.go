package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"agentcoord/app/handler"
	"agentcoord/internal/coordinator"
	"agentcoord/internal/jobs"
	"agentcoord/internal/registry"
	"agentcoord/internal/resource"
	"agentcoord/internal/scaling"
	"agentcoord/pkg/config"
	"agentcoord/pkg/logger"
	"agentcoord/pkg/monitoring"
	"agentcoord/pkg/notification"
	mysqlstore "agentcoord/pkg/store/mysql"
	redisstore "agentcoord/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// Application manages the lifecycle of the entire application
type Application struct {
	// Infrastructure components
	config      *config.Config
	redisClient *redisstore.RedisClient
	datastore   *mysqlstore.Datastore

	// Audit repositories (nil when MySQL is disabled)
	taskRecords   *mysqlstore.TaskRecordRepository
	scalingEvents *mysqlstore.ScalingEventRepository

	// Core components
	registry   *registry.Registry
	resources  *resource.Manager
	scaler     *scaling.Manager
	tracker    *monitoring.Tracker
	dispatcher coordinator.Dispatcher
	coord      *coordinator.Coordinator
	notifier   *notification.FeishuNotifier

	// Handler layer
	agentHandler      *handler.AgentHandler
	taskHandler       *handler.TaskHandler
	scalingHandler    *handler.ScalingHandler
	monitoringHandler *handler.MonitoringHandler

	// HTTP server
	httpServer *http.Server
	ginEngine  *gin.Engine

	// Background tasks
	jobsManager *jobs.Manager

	// Context management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cleanupFuncs []func()
}

// NewApplication creates a new Application instance
func NewApplication() *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		ctx:          ctx,
		cancel:       cancel,
		cleanupFuncs: make([]func(), 0),
	}
}

// Initialize initializes all application components
func (app *Application) Initialize() error {
	var err error

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Configuration", app.initConfig},
		{"Logging", app.initLogger},
		{"Redis", app.initRedis},
		{"MySQL", app.initMySQL},
		{"Core Components", app.initCore},
		{"Dispatch", app.initDispatch},
		{"Coordinator", app.initCoordinator},
		{"Background Tasks", app.initJobs},
		{"Handler Layer", app.initHandlers},
		{"HTTP Server", app.initHTTPServer},
	}

	for _, step := range steps {
		logger.InfoCtx(app.ctx, "Initializing %s...", step.name)
		if err = step.fn(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		logger.InfoCtx(app.ctx, "%s initialized successfully", step.name)
	}

	logger.InfoCtx(app.ctx, "Application initialization completed")
	return nil
}

// Start starts all application components
func (app *Application) Start() error {
	logger.InfoCtx(app.ctx, "Starting application components...")

	// 1. Start the scheduling loop
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.coord.Run(app.ctx)
	}()

	// 2. Fan scaling decisions out to the audit store and notifier
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.consumeScalingDecisions()
	}()

	// 3. Start background tasks
	if app.jobsManager != nil {
		logger.InfoCtx(app.ctx, "Starting background task manager")
		app.jobsManager.Start()
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.jobsManager.Wait()
		}()
	}

	// 4. Start HTTP server
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		addr := fmt.Sprintf(":%d", app.config.Server.Port)
		logger.InfoCtx(app.ctx, "HTTP server listening on: %s", addr)
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalCtx(app.ctx, "HTTP server error: %v", err)
		}
	}()

	logger.InfoCtx(app.ctx, "All components started successfully")
	return nil
}

// consumeScalingDecisions forwards published scaling decisions to the audit
// store and the webhook notifier, both best effort
func (app *Application) consumeScalingDecisions() {
	decisions := app.scaler.Subscribe()
	for {
		select {
		case <-app.ctx.Done():
			return
		case decision, ok := <-decisions:
			if !ok {
				return
			}
			if app.scalingEvents != nil {
				if err := app.scalingEvents.Create(app.ctx, &decision); err != nil {
					logger.WarnCtx(app.ctx, "failed to persist scaling decision: %v", err)
				}
			}
			if app.notifier != nil && app.notifier.Enabled() {
				if err := app.notifier.SendScalingNotification(app.ctx, &decision); err != nil {
					logger.WarnCtx(app.ctx, "failed to send scaling notification: %v", err)
				}
			}
		}
	}
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown(timeout time.Duration) error {
	logger.InfoCtx(app.ctx, "Starting graceful shutdown (timeout: %v)...", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 1. Cancel all background tasks
	logger.InfoCtx(app.ctx, "Canceling background tasks...")
	app.cancel()
	if app.jobsManager != nil {
		app.jobsManager.Stop()
	}

	// 2. Stop HTTP server (stop accepting new requests)
	logger.InfoCtx(app.ctx, "Shutting down HTTP server...")
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(app.ctx, "HTTP server shutdown error: %v", err)
	}

	// 3. Wait for all background tasks to complete
	logger.InfoCtx(app.ctx, "Waiting for background tasks to complete...")
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoCtx(app.ctx, "All background tasks completed")
	case <-shutdownCtx.Done():
		logger.WarnCtx(app.ctx, "Shutdown timeout, some tasks may not have completed")
	}

	// 4. Execute all cleanup functions (in reverse registration order)
	logger.InfoCtx(app.ctx, "Executing cleanup functions...")
	for i := len(app.cleanupFuncs) - 1; i >= 0; i-- {
		app.cleanupFuncs[i]()
	}

	// 5. Sync logs
	logger.Sync()

	logger.InfoCtx(app.ctx, "Graceful shutdown completed")
	return nil
}

// registerCleanup registers cleanup function
func (app *Application) registerCleanup(cleanup func()) {
	app.cleanupFuncs = append(app.cleanupFuncs, cleanup)
}
