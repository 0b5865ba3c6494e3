package model

import (
	"time"
)

// ScalingAction scaling action kind
type ScalingAction string

const (
	ScalingActionScaleUp   ScalingAction = "SCALE_UP"
	ScalingActionScaleDown ScalingAction = "SCALE_DOWN"
	ScalingActionNoOp      ScalingAction = "NOOP"
)

// ScalingReason trigger cause recorded on a scaling decision
type ScalingReason string

const (
	ScalingReasonQueueDepthHigh  ScalingReason = "queue-depth-high"
	ScalingReasonLatencyHigh     ScalingReason = "latency-high"
	ScalingReasonUtilizationHigh ScalingReason = "utilization-high"
	ScalingReasonUtilizationLow  ScalingReason = "utilization-low"
	ScalingReasonCooldownActive  ScalingReason = "cooldown-active"
	ScalingReasonWithinLimits    ScalingReason = "within-limits"
)

// ScalingDecision advisory decision emitted to the external provisioner
type ScalingDecision struct {
	Action         ScalingAction `json:"action"`
	N              int           `json:"n"` // Number of agents to add or remove, 0 for NoOp
	Reason         ScalingReason `json:"reason"`
	EvaluatedAt    time.Time     `json:"evaluated_at"`
	PoolSizeBefore int           `json:"pool_size_before"`
	PoolSizeAfter  int           `json:"pool_size_after"`
}

// PoolMetrics pool-wide inputs to a scaling evaluation
type PoolMetrics struct {
	QueueDepth     int           `json:"queue_depth"`
	AvgTaskLatency time.Duration `json:"avg_task_latency"` // Trailing-window end-to-end latency
	AvgUtilization float64       `json:"avg_utilization"`  // Pool-wide, 0..1
	PoolSize       int           `json:"pool_size"`        // Assignable agents
}
