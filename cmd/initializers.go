package main

import (
	"fmt"
	"net/http"
	"time"

	"agentcoord/app/handler"
	"agentcoord/app/router"
	"agentcoord/internal/coordinator"
	"agentcoord/internal/registry"
	"agentcoord/internal/resource"
	"agentcoord/internal/scaling"
	"agentcoord/pkg/config"
	"agentcoord/pkg/dispatch"
	"agentcoord/pkg/logger"
	"agentcoord/pkg/monitoring"
	"agentcoord/pkg/notification"
	mysqlstore "agentcoord/pkg/store/mysql"
	redisstore "agentcoord/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

const latencyWindowSize = 100

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
	})
	return nil
}

// initRedis initializes Redis
func (app *Application) initRedis() error {
	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initMySQL initializes the MySQL audit store, if enabled
func (app *Application) initMySQL() error {
	if !app.config.MySQL.Enabled {
		logger.InfoCtx(app.ctx, "MySQL audit store disabled")
		return nil
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		app.config.MySQL.User,
		app.config.MySQL.Password,
		app.config.MySQL.Host,
		app.config.MySQL.Port,
		app.config.MySQL.Database,
	)

	ds, err := mysqlstore.NewDatastore(dsn)
	if err != nil {
		return err
	}
	if err := ds.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate audit tables: %w", err)
	}

	app.datastore = ds
	app.taskRecords = mysqlstore.NewTaskRecordRepository(ds)
	app.scalingEvents = mysqlstore.NewScalingEventRepository(ds)
	app.registerCleanup(func() {
		ds.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initCore initializes the registry, resource manager, scaling manager and
// the latency tracker
func (app *Application) initCore() error {
	app.registry = registry.New()

	app.resources = resource.NewManager(resource.Config{
		WindowSize:    app.config.Resource.WindowSize,
		HighWaterMark: app.config.Resource.HighWaterMark,
		LowWaterMark:  app.config.Resource.LowWaterMark,
	})

	app.scaler = scaling.NewManager(scaling.Config{
		MinAgents:                     app.config.Scaling.MinAgents,
		MaxAgents:                     app.config.Scaling.MaxAgents,
		CooldownPeriod:                time.Duration(app.config.Scaling.CooldownPeriod) * time.Second,
		ScaleUpQueueThreshold:         app.config.Scaling.ScaleUpQueueThreshold,
		ScaleUpLatencyThreshold:       time.Duration(app.config.Scaling.ScaleUpLatency) * time.Second,
		ScaleUpUtilizationThreshold:   app.config.Scaling.ScaleUpUtilization,
		ScaleDownUtilizationThreshold: app.config.Scaling.ScaleDownUtilization,
		StabilityWindow:               app.config.Scaling.StabilityWindow,
	})

	app.tracker = monitoring.NewTracker(latencyWindowSize)
	app.notifier = notification.NewFeishuNotifier()
	return nil
}

// initDispatch initializes the assignment transport
func (app *Application) initDispatch() error {
	dispatcher, err := dispatch.CreateDispatcher(app.config, app.config.Dispatch.Provider)
	if err != nil {
		return err
	}
	app.dispatcher = dispatcher
	return nil
}

// initCoordinator wires the coordinator together
func (app *Application) initCoordinator() error {
	strategy, err := coordinator.NewStrategy(app.config.Coordinator.Strategy, app.resources)
	if err != nil {
		return err
	}

	opts := coordinator.Options{
		Mirror: redisstore.NewAgentMirror(app.redisClient),
	}
	if app.taskRecords != nil {
		opts.Archive = app.taskRecords
	}

	app.coord = coordinator.New(
		coordinator.Config{
			HeartbeatInterval:    app.config.Coordinator.HeartbeatIntervalDuration(),
			MissedThreshold:      app.config.Coordinator.MissedThreshold,
			UnresponsiveGrace:    time.Duration(app.config.Coordinator.UnresponsiveGrace) * time.Second,
			TaskTimeout:          app.config.Coordinator.TaskTimeoutDuration(),
			DefaultMaxAttempts:   app.config.Coordinator.DefaultMaxAttempts,
			DefaultMaxConcurrent: app.config.Coordinator.MaxConcurrentTasks,
			RetentionWindow:      app.config.Coordinator.RetentionWindowDuration(),
		},
		app.registry,
		app.resources,
		app.scaler,
		strategy,
		app.dispatcher,
		app.tracker,
		opts,
	)
	return nil
}

// initHandlers initializes HTTP handlers
func (app *Application) initHandlers() error {
	app.agentHandler = handler.NewAgentHandler(app.coord)
	app.taskHandler = handler.NewTaskHandler(app.coord)
	app.scalingHandler = handler.NewScalingHandler(app.scaler, app.scalingEvents)
	app.monitoringHandler = handler.NewMonitoringHandler(app.coord, app.resources, app.tracker)
	return nil
}

// initHTTPServer initializes the HTTP server
func (app *Application) initHTTPServer() error {
	if app.config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	app.ginEngine = gin.New()

	r := router.NewRouter(app.agentHandler, app.taskHandler, app.scalingHandler, app.monitoringHandler)
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}
	return nil
}
