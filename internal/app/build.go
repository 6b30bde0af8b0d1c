package app

import (
	"log/slog"

	"github.com/vk/taskgridgo/internal/config"
	"github.com/vk/taskgridgo/internal/queue"
	"github.com/vk/taskgridgo/internal/task"
)

// buildGraph instantiates the grid's blocks as live tasks on q, in
// declaration order. Validation already guaranteed every reference names an
// earlier block, so a single pass suffices and every lookup hits. The
// returned handles must be released (in any order) once the run has drained.
func buildGraph(q *queue.TaskQueue, grid *config.Grid, logger *slog.Logger) []*task.Task {
	handles := make(map[string]*task.Task, len(grid.Blocks))
	order := make([]*task.Task, 0, len(grid.Blocks))

	for _, b := range grid.Blocks {
		var h *task.Task
		switch b.Kind {
		case config.TaskBlock:
			body := taskBody(logger, b)
			if b.After == "" {
				h = q.Spawn(body)
			} else {
				h = q.SpawnAfter(handles[b.After], body)
			}
		case config.JoinBlock:
			preds := make([]*task.Task, len(b.Of))
			for i, name := range b.Of {
				preds[i] = handles[name]
			}
			h = q.WhenAll(preds...)
		}
		handles[b.Name] = h
		order = append(order, h)
	}

	return order
}

// taskBody builds the runnable body for a task block: log the block's
// message, if any, and respawn until the repeat count is used up. The run
// counter needs no synchronization; the queue sequences successive
// executions of a respawning task.
func taskBody(logger *slog.Logger, b *config.Block) task.Body {
	name := b.Name
	message := b.Message
	repeat := b.Repeat
	runs := 0

	return func(self *task.Task) {
		if message != "" {
			logger.Info(message, "task", name, "run", runs)
		}
		if runs < repeat {
			runs++
			self.Respawn()
		}
	}
}
