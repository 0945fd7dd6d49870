package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kynth65/ai-invoice-management/constants"
	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/entity"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	return db
}

func makeTask(t *testing.T, repo TaskRepository, taskType constants.TaskType) *entity.ProcessingTask {
	t.Helper()
	task := &entity.ProcessingTask{InvoiceID: uuid.New(), TaskType: taskType}
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

func TestTaskCreateDefaults(t *testing.T) {
	repo := NewTaskRepository(testDB(t))
	task := makeTask(t, repo, constants.TaskDataExtraction)

	require.NotEqual(t, uuid.Nil, task.ID)
	require.Equal(t, constants.TaskStatusPending, task.Status)
	require.Equal(t, constants.DefaultMaxRetries, task.MaxRetries)
}

func TestTaskCreateRejectsUnknownType(t *testing.T) {
	repo := NewTaskRepository(testDB(t))
	err := repo.Create(context.Background(), &entity.ProcessingTask{
		InvoiceID: uuid.New(),
		TaskType:  constants.TaskType("image_generation"),
	})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestTaskClaimIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(testDB(t))
	task := makeTask(t, repo, constants.TaskDataExtraction)

	claimed, err := repo.Claim(ctx, task.ID, "node-a")
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = repo.Claim(ctx, task.ID, "node-b")
	require.NoError(t, err)
	require.False(t, claimed, "second claim must lose")

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, constants.TaskStatusProcessing, got.Status)
	require.Equal(t, "node-a", got.ProcessingNode)
	require.NotNil(t, got.StartedAt)
}

func TestTaskListPendingOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(testDB(t))

	first := makeTask(t, repo, constants.TaskDataExtraction)
	second := makeTask(t, repo, constants.TaskDuplicateDetection)
	claimedTask := makeTask(t, repo, constants.TaskDataExtraction)
	_, err := repo.Claim(ctx, claimedTask.ID, "node-a")
	require.NoError(t, err)

	pending, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)
	require.Equal(t, second.ID, pending[1].ID)

	pending, err = repo.ListPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestTaskRetry(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(testDB(t))
	task := makeTask(t, repo, constants.TaskDataExtraction)

	// Not failed yet: retry is a conflict.
	_, err := repo.Retry(ctx, task.ID)
	require.ErrorIs(t, err, common.ErrConflict)

	now := time.Now().UTC()
	task.Status = constants.TaskStatusFailed
	task.ErrorMessage = "model unavailable"
	task.StartedAt = &now
	task.CompletedAt = &now
	require.NoError(t, repo.Update(ctx, task))

	requeued, err := repo.Retry(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, constants.TaskStatusPending, requeued.Status)
	require.Equal(t, 1, requeued.RetryCount)
	require.Empty(t, requeued.ErrorMessage)
	require.Nil(t, requeued.StartedAt)
	require.Nil(t, requeued.CompletedAt)
}

func TestTaskRetryExhausted(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(testDB(t))
	task := makeTask(t, repo, constants.TaskDataExtraction)

	task.Status = constants.TaskStatusFailed
	task.RetryCount = task.MaxRetries
	require.NoError(t, repo.Update(ctx, task))

	_, err := repo.Retry(ctx, task.ID)
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestTaskStats(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(testDB(t))

	makeTask(t, repo, constants.TaskDataExtraction)
	done := makeTask(t, repo, constants.TaskDataExtraction)
	done.Status = constants.TaskStatusCompleted
	require.NoError(t, repo.Update(ctx, done))
	failed := makeTask(t, repo, constants.TaskDuplicateDetection)
	failed.Status = constants.TaskStatusFailed
	require.NoError(t, repo.Update(ctx, failed))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Pending)
	require.Equal(t, int64(1), stats.Completed)
	require.Equal(t, int64(1), stats.Failed)
	require.Equal(t, int64(3), stats.Total)
	require.Equal(t, 0.5, stats.SuccessRate)
	require.Equal(t, int64(2), stats.ByType[string(constants.TaskDataExtraction)])
	require.Equal(t, int64(1), stats.ByType[string(constants.TaskDuplicateDetection)])
	require.Equal(t, int64(3), stats.Last7Days)
}

func TestTaskCleanup(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(testDB(t))

	old := time.Now().UTC().AddDate(0, 0, -60)
	recent := time.Now().UTC()

	oldDone := makeTask(t, repo, constants.TaskDataExtraction)
	oldDone.Status = constants.TaskStatusCompleted
	oldDone.CompletedAt = &old
	require.NoError(t, repo.Update(ctx, oldDone))

	recentDone := makeTask(t, repo, constants.TaskDataExtraction)
	recentDone.Status = constants.TaskStatusCompleted
	recentDone.CompletedAt = &recent
	require.NoError(t, repo.Update(ctx, recentDone))

	oldDeadFailed := makeTask(t, repo, constants.TaskDuplicateDetection)
	oldDeadFailed.Status = constants.TaskStatusFailed
	oldDeadFailed.RetryCount = oldDeadFailed.MaxRetries
	oldDeadFailed.CreatedAt = old
	require.NoError(t, repo.Update(ctx, oldDeadFailed))

	freshDeadFailed := makeTask(t, repo, constants.TaskDuplicateDetection)
	freshDeadFailed.Status = constants.TaskStatusFailed
	freshDeadFailed.RetryCount = freshDeadFailed.MaxRetries
	freshDeadFailed.ErrorMessage = "model unavailable"
	require.NoError(t, repo.Update(ctx, freshDeadFailed))

	retryableFailed := makeTask(t, repo, constants.TaskDuplicateDetection)
	retryableFailed.Status = constants.TaskStatusFailed
	retryableFailed.CreatedAt = old
	require.NoError(t, repo.Update(ctx, retryableFailed))

	removed, err := repo.Cleanup(ctx, time.Now().UTC().AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	_, err = repo.GetByID(ctx, oldDone.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.GetByID(ctx, oldDeadFailed.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.GetByID(ctx, recentDone.ID)
	require.NoError(t, err, "recent completed tasks survive")
	got, err := repo.GetByID(ctx, freshDeadFailed.ID)
	require.NoError(t, err, "fresh failures keep their error record until they age out")
	require.Equal(t, "model unavailable", got.ErrorMessage)
	_, err = repo.GetByID(ctx, retryableFailed.ID)
	require.NoError(t, err, "failed tasks with retry budget survive regardless of age")
}

func TestPendingProcessingCounts(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(testDB(t))

	makeTask(t, repo, constants.TaskDataExtraction)
	makeTask(t, repo, constants.TaskDataExtraction)
	claimedTask := makeTask(t, repo, constants.TaskDuplicateDetection)
	_, err := repo.Claim(ctx, claimedTask.ID, "node-a")
	require.NoError(t, err)

	pending, processing, err := repo.PendingProcessingCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), pending)
	require.Equal(t, int64(1), processing)
}
