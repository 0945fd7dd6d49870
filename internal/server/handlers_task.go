package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kynth65/ai-invoice-management/internal/common"
)

func (s *Server) listRecentTasks(c *gin.Context) {
	tasks, err := s.tasks.ListRecent(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) getTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewAppError("INVALID_ID", "id must be a valid UUID", common.ErrInvalidInput))
		return
	}
	task, err := s.tasks.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) taskStats(c *gin.Context) {
	stats, err := s.tasks.Stats(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) queueStatus(c *gin.Context) {
	pending, processing, err := s.tasks.PendingProcessingCounts(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pending":    pending,
		"processing": processing,
		"max_tasks":  s.cfg.Queue.MaxTasks,
		"schedule":   s.cfg.Queue.CronSchedule,
	})
}

// retryTask re-queues a failed task with remaining retry budget.
func (s *Server) retryTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewAppError("INVALID_ID", "id must be a valid UUID", common.ErrInvalidInput))
		return
	}
	task, err := s.tasks.Retry(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.log.Info("task.requeued", "task_id", task.ID, "retry_count", task.RetryCount)
	c.JSON(http.StatusOK, task)
}

// runQueue triggers an immediate batch instead of waiting for the cron
// tick. Useful for tests and operational pokes.
func (s *Server) runQueue(c *gin.Context) {
	maxTasks := queryInt(c, "max_tasks", s.cfg.Queue.MaxTasks)
	attempted, err := s.runner.RunOnce(c.Request.Context(), maxTasks)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempted": attempted})
}
