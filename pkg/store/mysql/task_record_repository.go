package mysql

import (
	"context"
	"fmt"
	"time"

	"agentcoord/internal/model"

	"gorm.io/gorm/clause"
)

// TaskRecordRepository handles terminal task audit records in MySQL
type TaskRecordRepository struct {
	ds *Datastore
}

// NewTaskRecordRepository creates a new task record repository
func NewTaskRecordRepository(ds *Datastore) *TaskRecordRepository {
	return &TaskRecordRepository{ds: ds}
}

// SaveTask upserts the audit record for a terminal task. A task that reaches a
// terminal state twice (retention purge races with a late outcome) overwrites
// its previous row rather than duplicating it.
func (r *TaskRecordRepository) SaveTask(ctx context.Context, task *model.Task) error {
	record := FromTaskDomain(task)
	err := r.ds.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}},
		UpdateAll: true,
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save task record: %w", err)
	}
	return nil
}

// Get retrieves a single task record
func (r *TaskRecordRepository) Get(ctx context.Context, taskID string) (*TaskRecord, error) {
	var record TaskRecord
	err := r.ds.DB(ctx).Where("task_id = ?", taskID).First(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get task record: %w", err)
	}
	return &record, nil
}

// ListRecent retrieves the most recent task records
func (r *TaskRecordRepository) ListRecent(ctx context.Context, limit int) ([]*TaskRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []*TaskRecord
	err := r.ds.DB(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list task records: %w", err)
	}
	return records, nil
}

// CountByStatus counts records per terminal status
func (r *TaskRecordRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.ds.DB(ctx).Model(&TaskRecord{}).Where("status = ?", status).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count task records: %w", err)
	}
	return count, nil
}

// DeleteOldRecords deletes records created before the given time
func (r *TaskRecordRepository) DeleteOldRecords(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.ds.DB(ctx).Where("created_at < ?", olderThan).Delete(&TaskRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old task records: %w", result.Error)
	}
	return result.RowsAffected, nil
}
