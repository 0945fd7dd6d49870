package processor

import (
	"context"
	"log/slog"

	"github.com/kynth65/ai-invoice-management/internal/repository"
)

// Runner drains the pending queue in batches. Tasks run serially within
// one RunOnce call; per-task failures are recorded on the task and never
// abort the batch.
type Runner struct {
	tasks     repository.TaskRepository
	processor *Processor
	log       *slog.Logger
}

func NewRunner(tasks repository.TaskRepository, proc *Processor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{tasks: tasks, processor: proc, log: logger}
}

// RunOnce processes up to maxTasks pending tasks in creation order and
// returns how many were attempted (claim losses do not count).
func (r *Runner) RunOnce(ctx context.Context, maxTasks int) (int, error) {
	pending, err := r.tasks.ListPending(ctx, maxTasks)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	r.log.Info("runner.batch.start", "pending", len(pending), "max_tasks", maxTasks)

	attempted := 0
	for _, task := range pending {
		if ctx.Err() != nil {
			r.log.Warn("runner.batch.interrupted", "attempted", attempted)
			return attempted, ctx.Err()
		}

		claimed, err := r.processor.Process(ctx, task.ID)
		if !claimed {
			if err != nil {
				r.log.Error("runner.claim.error", "task_id", task.ID, "error", err)
			}
			continue
		}
		attempted++
		// err is already written to the task row by the processor.
		_ = err
	}

	r.log.Info("runner.batch.done", "attempted", attempted)
	return attempted, nil
}
