package runner

import (
	"context"
	"time"

	"github.com/smazurov/toggler/internal/config"
	"github.com/smazurov/toggler/internal/events"
)

// Watch applies the robot file at path whenever it changes. Files that fail
// to load or apply are reported and the running generation stays in place.
// The caller stops the returned watcher.
func (r *Runner) Watch(ctx context.Context, path string, debounce time.Duration) (*config.Watcher[*config.Robot], error) {
	reportFailure := func(err error) {
		r.logger.Error("Robot file rejected, keeping current configuration",
			"path", path,
			"generation", r.Generation(),
			"error", err)
		r.publish(events.ConfigReloadFailedEvent{
			Path:      path,
			Error:     err.Error(),
			Timestamp: now(),
		})
	}

	opts := []config.WatcherOption[*config.Robot]{config.WithErrorHandler[*config.Robot](reportFailure)}
	if debounce > 0 {
		opts = append(opts, config.WithDebounce[*config.Robot](debounce))
	}

	w := config.NewConfigWatcher(path, config.LoadRobot, r.logger.With("path", path), opts...)
	w.OnReload(func(robot *config.Robot) {
		if err := r.Apply(ctx, robot); err != nil {
			reportFailure(err)
		}
	})

	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
