package mysql

import "agentcoord/pkg/store/mysql/model"

// Re-export types from model package

type (
	// Database models
	TaskRecord         = model.TaskRecord
	ScalingEventRecord = model.ScalingEventRecord

	// Custom JSON types
	JSONMap         = model.JSONMap
	JSONStringArray = model.JSONStringArray
)
