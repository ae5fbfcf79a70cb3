package repository

import (
	"context"

	"mlmsystem/internal/model"

	"gorm.io/gorm"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, tx *gorm.DB, task *model.MatchingTask) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) GetPendingTasks(ctx context.Context, limit int) ([]*model.MatchingTask, error) {
	var tasks []*model.MatchingTask
	err := r.db.WithContext(ctx).
		Where("status = ?", model.TaskStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) MarkDone(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.MatchingTask{}).
		Where("id = ?", id).
		Update("status", model.TaskStatusDone).Error
}

func (r *TaskRepository) IncrementRetryCount(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.MatchingTask{}).
		Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
}

func (r *TaskRepository) MarkFailed(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.MatchingTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.TaskStatusFailed,
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
}
