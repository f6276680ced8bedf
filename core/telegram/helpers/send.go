package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/lumiabot/core/logger"
	"github.com/m3rciful/lumiabot/core/telegram/sender"
)

// shared is the process-wide outbound queue, set by the runtime while the bot runs.
var shared atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs d as the shared queue; nil uninstalls it.
func SetDispatcher(d *sender.Dispatcher) { shared.Store(d) }

// SendAsync hands run to the shared queue and returns once it is accepted.
// It runs inline, returning run's own error, when no queue is installed or
// the queue refuses the job.
func SendAsync(ctx context.Context, action, endpoint string, run func() error) error {
	d := shared.Load()
	if d == nil {
		return run()
	}
	err := d.Enqueue(ctx, action, endpoint, run)
	if !errors.Is(err, sender.ErrQueueFull) && !errors.Is(err, sender.ErrQueueClosed) {
		return err
	}
	logger.Warn(ctx, "tg.sender", "queue.fallback",
		slog.String("action", action),
		slog.String("endpoint", endpoint),
		slog.String("err", err.Error()),
	)
	return run()
}
