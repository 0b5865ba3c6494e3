package main

import (
	"context"
	"fmt"
	"time"

	"agentcoord/internal/coordinator"
	"agentcoord/internal/jobs"
	"agentcoord/pkg/logger"
)

func (app *Application) initJobs() error {
	if app.coord == nil {
		return fmt.Errorf("coordinator not initialized")
	}

	manager := jobs.NewManager(app.ctx)

	// Sweep twice per heartbeat period so missed heartbeats are noticed
	// within one period.
	sweepInterval := app.config.Coordinator.HeartbeatIntervalDuration() / 2
	if sweepInterval < time.Second {
		sweepInterval = time.Second
	}

	manager.Register(newHeartbeatSweepJob(sweepInterval, app.coord))
	manager.Register(newTaskTimeoutSweepJob(30*time.Second, app.coord))
	manager.Register(newRetentionPurgeJob(5*time.Minute, app.coord))
	manager.Register(newUtilizationSampleJob(
		time.Duration(app.config.Scaling.EvaluateInterval)*time.Second, app.coord))

	app.jobsManager = manager
	return nil
}

// heartbeatSweepJob drives the agent health state machine.
type heartbeatSweepJob struct {
	interval time.Duration
	coord    *coordinator.Coordinator
}

func newHeartbeatSweepJob(interval time.Duration, coord *coordinator.Coordinator) jobs.Job {
	return &heartbeatSweepJob{interval: interval, coord: coord}
}

func (j *heartbeatSweepJob) Name() string {
	return "heartbeat-sweep"
}

func (j *heartbeatSweepJob) Interval() time.Duration {
	return j.interval
}

func (j *heartbeatSweepJob) Run(ctx context.Context) error {
	logger.DebugCtx(ctx, "running heartbeat sweep job")
	return j.coord.SweepHeartbeats(ctx)
}

// taskTimeoutSweepJob requeues tasks whose assignment exceeded the timeout.
type taskTimeoutSweepJob struct {
	interval time.Duration
	coord    *coordinator.Coordinator
}

func newTaskTimeoutSweepJob(interval time.Duration, coord *coordinator.Coordinator) jobs.Job {
	return &taskTimeoutSweepJob{interval: interval, coord: coord}
}

func (j *taskTimeoutSweepJob) Name() string {
	return "task-timeout-sweep"
}

func (j *taskTimeoutSweepJob) Interval() time.Duration {
	return j.interval
}

func (j *taskTimeoutSweepJob) Run(ctx context.Context) error {
	logger.DebugCtx(ctx, "running task timeout sweep job")
	return j.coord.SweepTaskTimeouts(ctx)
}

// retentionPurgeJob drops terminal tasks past the retention window.
type retentionPurgeJob struct {
	interval time.Duration
	coord    *coordinator.Coordinator
}

func newRetentionPurgeJob(interval time.Duration, coord *coordinator.Coordinator) jobs.Job {
	return &retentionPurgeJob{interval: interval, coord: coord}
}

func (j *retentionPurgeJob) Name() string {
	return "retention-purge"
}

func (j *retentionPurgeJob) Interval() time.Duration {
	return j.interval
}

func (j *retentionPurgeJob) Run(ctx context.Context) error {
	logger.DebugCtx(ctx, "running retention purge job")
	return j.coord.PurgeExpiredTasks(ctx)
}

// utilizationSampleJob records pool utilization for optimization hints.
type utilizationSampleJob struct {
	interval time.Duration
	coord    *coordinator.Coordinator
}

func newUtilizationSampleJob(interval time.Duration, coord *coordinator.Coordinator) jobs.Job {
	return &utilizationSampleJob{interval: interval, coord: coord}
}

func (j *utilizationSampleJob) Name() string {
	return "utilization-sample"
}

func (j *utilizationSampleJob) Interval() time.Duration {
	return j.interval
}

func (j *utilizationSampleJob) Run(ctx context.Context) error {
	return j.coord.SampleUtilization(ctx)
}
