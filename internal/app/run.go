package app

import (
	"context"
	"fmt"

	"github.com/vk/taskgridgo/internal/ctxlog"
	"github.com/vk/taskgridgo/internal/executor"
	"github.com/vk/taskgridgo/internal/pool"
	"github.com/vk/taskgridgo/internal/queue"
)

// Run executes the loaded grid: build the task graph, drain it with a worker
// pool, then release the construction handles and verify the queue and pool
// drained cleanly.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if len(a.grid.Blocks) == 0 {
		a.logger.Warn("No blocks found in grid, execution not required.")
		return nil
	}

	p := pool.New()
	q := queue.New(p)

	handles := buildGraph(q, a.grid, a.logger)
	a.logger.Debug("Task graph built.", "tasks", len(handles))

	a.logger.Info("Starting concurrent execution.", "workers", appConfig.WorkerCount)
	exec := executor.New(q, appConfig.WorkerCount)
	if err := exec.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	for _, h := range handles {
		q.Release(h)
	}
	q.Close()

	if n := p.Outstanding(); n != 0 {
		a.logger.Warn("Task nodes still outstanding after drain.", "count", n)
	}

	a.logger.Info("Execution finished.", "tasks", len(handles))
	return nil
}
