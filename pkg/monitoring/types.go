package monitoring

// RealtimeMetrics represents a real-time snapshot of the pool
type RealtimeMetrics struct {
	Agents      AgentMetrics `json:"agents"`
	Tasks       TaskMetrics  `json:"tasks"`
	Performance PerfMetrics  `json:"performance"`
}

type AgentMetrics struct {
	Total      int `json:"total"`
	Assignable int `json:"assignable"`
}

type TaskMetrics struct {
	InQueue   int   `json:"in_queue"`
	Running   int   `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

type PerfMetrics struct {
	AvgTaskLatencyMs float64 `json:"avg_task_latency_ms"`
	PoolUtilization  float64 `json:"pool_utilization"`
}
