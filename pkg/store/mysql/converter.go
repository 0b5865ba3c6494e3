package mysql

import (
	"agentcoord/internal/model"
)

// FromTaskDomain converts a domain Task to its audit record
func FromTaskDomain(task *model.Task) *TaskRecord {
	if task == nil {
		return nil
	}

	return &TaskRecord{
		TaskID:               task.ID,
		RequiredCapabilities: JSONStringArray(task.RequiredCapabilities),
		Priority:             task.Priority,
		ResourceRequest:      resourcesToJSONMap(task.ResourceRequest),
		Status:               string(task.Status),
		AttemptCount:         task.AttemptCount,
		MaxAttempts:          task.MaxAttempts,
		FailureReason:        string(task.FailureReason),
		Error:                task.Error,
		Output:               JSONMap(task.Output),
		CreatedAt:            task.CreatedAt,
		CompletedAt:          task.CompletedAt,
	}
}

// FromScalingDecision converts a scaling decision to its audit record
func FromScalingDecision(d *model.ScalingDecision) *ScalingEventRecord {
	if d == nil {
		return nil
	}

	return &ScalingEventRecord{
		Action:         string(d.Action),
		Count:          d.N,
		Reason:         string(d.Reason),
		PoolSizeBefore: d.PoolSizeBefore,
		PoolSizeAfter:  d.PoolSizeAfter,
		EvaluatedAt:    d.EvaluatedAt,
	}
}

func resourcesToJSONMap(r model.Resources) JSONMap {
	return JSONMap{
		"cpu_units":    r.CPUUnits,
		"memory_bytes": r.MemoryBytes,
		"disk_bytes":   r.DiskBytes,
		"network_kbps": r.NetworkKbps,
	}
}
