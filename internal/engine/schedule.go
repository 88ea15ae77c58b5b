package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// runScheduled runs job on the cron spec (with seconds field) and blocks
// until ctx is cancelled, then waits for a running job to finish.
func runScheduled(ctx context.Context, name, spec string, logger *slog.Logger, job func(ctx context.Context) error) error {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			logger.Error(name+" failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	c.Start()
	logger.Info(name+" scheduler started", slog.String("schedule", spec))
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info(name + " scheduler stopped")
	return nil
}
