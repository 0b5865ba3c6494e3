package mysql

import (
	"context"
	"fmt"
	"time"

	"agentcoord/internal/model"
)

// ScalingEventRepository handles scaling decision audit records in MySQL
type ScalingEventRepository struct {
	ds *Datastore
}

// NewScalingEventRepository creates a new scaling event repository
func NewScalingEventRepository(ds *Datastore) *ScalingEventRepository {
	return &ScalingEventRepository{ds: ds}
}

// Create persists one scaling decision
func (r *ScalingEventRepository) Create(ctx context.Context, decision *model.ScalingDecision) error {
	if err := r.ds.DB(ctx).Create(FromScalingDecision(decision)).Error; err != nil {
		return fmt.Errorf("failed to create scaling event: %w", err)
	}
	return nil
}

// ListRecent retrieves the most recent scaling events
func (r *ScalingEventRepository) ListRecent(ctx context.Context, limit int) ([]*ScalingEventRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var events []*ScalingEventRecord
	err := r.ds.DB(ctx).
		Order("evaluated_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent scaling events: %w", err)
	}
	return events, nil
}

// ListByTimeRange retrieves scaling events within a time range
func (r *ScalingEventRepository) ListByTimeRange(ctx context.Context, startTime, endTime time.Time, limit int) ([]*ScalingEventRecord, error) {
	if limit <= 0 {
		limit = 1000
	}

	var events []*ScalingEventRecord
	err := r.ds.DB(ctx).
		Where("evaluated_at >= ? AND evaluated_at <= ?", startTime, endTime).
		Order("evaluated_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scaling events by time range: %w", err)
	}
	return events, nil
}

// DeleteOldEvents deletes events older than the specified time
func (r *ScalingEventRepository) DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.ds.DB(ctx).Where("evaluated_at < ?", olderThan).Delete(&ScalingEventRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old scaling events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
