package model

import "time"

// TaskRecord MySQL model for task_records table (terminal task audit trail)
type TaskRecord struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskID               string          `gorm:"column:task_id;type:varchar(255);not null;uniqueIndex:idx_task_id_unique" json:"task_id"`
	RequiredCapabilities JSONStringArray `gorm:"column:required_capabilities;type:json" json:"required_capabilities"`
	Priority             int             `gorm:"column:priority;type:int;not null;default:0" json:"priority"`
	ResourceRequest      JSONMap         `gorm:"column:resource_request;type:json" json:"resource_request"`
	Status               string          `gorm:"column:status;type:varchar(50);not null;index:idx_status" json:"status"`
	AttemptCount         int             `gorm:"column:attempt_count;type:int;not null;default:0" json:"attempt_count"`
	MaxAttempts          int             `gorm:"column:max_attempts;type:int;not null;default:0" json:"max_attempts"`
	FailureReason        string          `gorm:"column:failure_reason;type:varchar(50);not null;default:''" json:"failure_reason"`
	Error                string          `gorm:"column:error;type:text" json:"error"`
	Output               JSONMap         `gorm:"column:output;type:json" json:"output"`
	CreatedAt            time.Time       `gorm:"column:created_at;type:datetime(3);not null;index:idx_created_at" json:"created_at"`
	CompletedAt          *time.Time      `gorm:"column:completed_at;type:datetime(3)" json:"completed_at,omitempty"`
}

// TableName specifies the table name for TaskRecord
func (TaskRecord) TableName() string {
	return "task_records"
}
