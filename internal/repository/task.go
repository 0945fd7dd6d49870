package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kynth65/ai-invoice-management/constants"
	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/entity"
)

// TaskStats aggregates queue health: per-status and per-type counts,
// completion rate over terminal tasks, and recent activity.
type TaskStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Total      int64 `json:"total"`

	ByType        map[string]int64 `json:"by_type"`
	SuccessRate   float64          `json:"success_rate"`
	AvgDurationMs float64          `json:"avg_duration_ms"`
	Last7Days     int64            `json:"last_7_days"`
}

// TaskRepository persists processing tasks. The Claim method is the only
// supported way to move a task into the processing state.
type TaskRepository interface {
	Create(ctx context.Context, task *entity.ProcessingTask) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ProcessingTask, error)
	ListPending(ctx context.Context, limit int) ([]*entity.ProcessingTask, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.ProcessingTask, error)
	Claim(ctx context.Context, id uuid.UUID, node string) (bool, error)
	Update(ctx context.Context, task *entity.ProcessingTask) error
	Retry(ctx context.Context, id uuid.UUID) (*entity.ProcessingTask, error)
	Stats(ctx context.Context) (*TaskStats, error)
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
	PendingProcessingCounts(ctx context.Context) (pending int64, processing int64, err error)
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *entity.ProcessingTask) error {
	if !constants.IsValidTaskType(task.TaskType) {
		return common.NewAppError("INVALID_TASK_TYPE", "unknown task type: "+string(task.TaskType), common.ErrInvalidInput)
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return common.WrapError(err, "create task")
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ProcessingTask, error) {
	var task entity.ProcessingTask
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "get task")
	}
	return &task, nil
}

// ListPending returns up to limit pending tasks in creation order.
func (r *taskRepository) ListPending(ctx context.Context, limit int) ([]*entity.ProcessingTask, error) {
	var tasks []*entity.ProcessingTask
	err := r.db.WithContext(ctx).
		Where("status = ?", constants.TaskStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, common.WrapError(err, "list pending tasks")
	}
	return tasks, nil
}

func (r *taskRepository) ListRecent(ctx context.Context, limit int) ([]*entity.ProcessingTask, error) {
	var tasks []*entity.ProcessingTask
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, common.WrapError(err, "list recent tasks")
	}
	return tasks, nil
}

// Claim atomically moves a pending task to processing, stamping the start
// time and owning node. Returns false when the task was already taken (or
// no longer pending), which callers must treat as "skip, not an error".
func (r *taskRepository) Claim(ctx context.Context, id uuid.UUID, node string) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&entity.ProcessingTask{}).
		Where("id = ? AND status = ?", id, constants.TaskStatusPending).
		Updates(map[string]any{
			"status":          constants.TaskStatusProcessing,
			"started_at":      now,
			"processing_node": node,
		})
	if res.Error != nil {
		return false, common.WrapError(res.Error, "claim task")
	}
	return res.RowsAffected == 1, nil
}

func (r *taskRepository) Update(ctx context.Context, task *entity.ProcessingTask) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return common.WrapError(err, "update task")
	}
	return nil
}

// Retry re-queues a failed task that still has retry budget: status back
// to pending, retry count incremented, error cleared. Anything else is a
// conflict.
func (r *taskRepository) Retry(ctx context.Context, id uuid.UUID) (*entity.ProcessingTask, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != constants.TaskStatusFailed {
		return nil, common.NewAppError("TASK_NOT_FAILED", "only failed tasks can be retried", common.ErrConflict)
	}
	if task.RetryCount >= task.MaxRetries {
		return nil, common.NewAppError("RETRIES_EXHAUSTED", "task has exhausted its retries", common.ErrConflict)
	}

	task.Status = constants.TaskStatusPending
	task.RetryCount++
	task.ErrorMessage = ""
	task.StartedAt = nil
	task.CompletedAt = nil
	task.ProcessingDurationMs = nil
	if err := r.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Stats(ctx context.Context) (*TaskStats, error) {
	type row struct {
		Status constants.TaskStatus
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&entity.ProcessingTask{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, common.WrapError(err, "task stats")
	}

	stats := &TaskStats{ByType: map[string]int64{}}
	for _, rw := range rows {
		stats.Total += rw.N
		switch rw.Status {
		case constants.TaskStatusPending:
			stats.Pending = rw.N
		case constants.TaskStatusProcessing:
			stats.Processing = rw.N
		case constants.TaskStatusCompleted:
			stats.Completed = rw.N
		case constants.TaskStatusFailed:
			stats.Failed = rw.N
		}
	}
	if terminal := stats.Completed + stats.Failed; terminal > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(terminal)
	}

	type typeRow struct {
		TaskType constants.TaskType
		N        int64
	}
	var typeRows []typeRow
	err = r.db.WithContext(ctx).
		Model(&entity.ProcessingTask{}).
		Select("task_type, count(*) as n").
		Group("task_type").
		Scan(&typeRows).Error
	if err != nil {
		return nil, common.WrapError(err, "task stats by type")
	}
	for _, rw := range typeRows {
		stats.ByType[string(rw.TaskType)] = rw.N
	}

	err = r.db.WithContext(ctx).
		Model(&entity.ProcessingTask{}).
		Where("status = ? AND processing_duration_ms IS NOT NULL", constants.TaskStatusCompleted).
		Select("coalesce(avg(processing_duration_ms), 0)").
		Scan(&stats.AvgDurationMs).Error
	if err != nil {
		return nil, common.WrapError(err, "task stats avg duration")
	}

	err = r.db.WithContext(ctx).
		Model(&entity.ProcessingTask{}).
		Where("created_at >= ?", time.Now().UTC().AddDate(0, 0, -7)).
		Count(&stats.Last7Days).Error
	if err != nil {
		return nil, common.WrapError(err, "task stats recent activity")
	}

	return stats, nil
}

// Cleanup deletes completed tasks finished before the cutoff, plus failed
// tasks older than the cutoff that have exhausted their retries. Fresh
// failures keep their error record until they age out. Returns rows
// removed.
func (r *taskRepository) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(status = ? AND completed_at < ?) OR (status = ? AND retry_count >= max_retries AND created_at < ?)",
			constants.TaskStatusCompleted, cutoff, constants.TaskStatusFailed, cutoff).
		Delete(&entity.ProcessingTask{})
	if res.Error != nil {
		return 0, common.WrapError(res.Error, "cleanup tasks")
	}
	return res.RowsAffected, nil
}

func (r *taskRepository) PendingProcessingCounts(ctx context.Context) (int64, int64, error) {
	var pending, processing int64
	if err := r.db.WithContext(ctx).Model(&entity.ProcessingTask{}).
		Where("status = ?", constants.TaskStatusPending).Count(&pending).Error; err != nil {
		return 0, 0, common.WrapError(err, "count pending tasks")
	}
	if err := r.db.WithContext(ctx).Model(&entity.ProcessingTask{}).
		Where("status = ?", constants.TaskStatusProcessing).Count(&processing).Error; err != nil {
		return 0, 0, common.WrapError(err, "count processing tasks")
	}
	return pending, processing, nil
}
