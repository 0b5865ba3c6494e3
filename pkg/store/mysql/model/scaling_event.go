package model

import "time"

// ScalingEventRecord MySQL model for scaling_events table
type ScalingEventRecord struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Action         string    `gorm:"column:action;type:varchar(50);not null;index:idx_action" json:"action"`
	Count          int       `gorm:"column:count;type:int;not null;default:0" json:"count"`
	Reason         string    `gorm:"column:reason;type:varchar(100);not null" json:"reason"`
	PoolSizeBefore int       `gorm:"column:pool_size_before;type:int;not null" json:"pool_size_before"`
	PoolSizeAfter  int       `gorm:"column:pool_size_after;type:int;not null" json:"pool_size_after"`
	EvaluatedAt    time.Time `gorm:"column:evaluated_at;type:datetime(3);not null;index:idx_evaluated_at" json:"evaluated_at"`
}

// TableName specifies the table name for ScalingEventRecord
func (ScalingEventRecord) TableName() string {
	return "scaling_events"
}
