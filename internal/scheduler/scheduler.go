// Package scheduler fires the daily generation pipeline at the configured
// wall-clock time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mindposter/internal/config"
	"mindposter/internal/middleware"
	"mindposter/internal/service"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// slogCronLogger adapts the application slog logger to cron's logger interface.
type slogCronLogger struct {
	log *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info("cron: "+msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	l.log.Error("cron: "+msg, args...)
}

// Scheduler runs the generation pipeline once per day in the configured time
// zone. It is the system's only autonomous entry point; every failure inside a
// run is contained so the next scheduled run always happens.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *service.Pipeline
}

// New creates a Scheduler wired to the pipeline. The schedule is
// hour:minute daily in cfg.Timezone.
func New(cfg *config.Config, pipeline *service.Pipeline) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	logger := slogCronLogger{log: middleware.Logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger)),
	)

	s := &Scheduler{cron: c, pipeline: pipeline}

	spec := fmt.Sprintf("%d %d * * *", cfg.ScheduleMinute, cfg.ScheduleHour)
	if _, err := c.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("failed to schedule daily generation: %w", err)
	}

	middleware.Logger.Info("scheduler configured",
		slog.String("time", fmt.Sprintf("%02d:%02d", cfg.ScheduleHour, cfg.ScheduleMinute)),
		slog.String("timezone", cfg.Timezone),
	)
	return s, nil
}

// Start begins firing scheduled runs in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling new runs and waits for an in-flight run, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes a single pipeline run. Errors are logged and swallowed: a
// failed run must never crash the process or suppress the next scheduled run.
func (s *Scheduler) RunOnce() {
	runID := uuid.NewString()
	ctx := middleware.WithRunID(context.Background(), runID)

	middleware.Logger.InfoContext(ctx, "daily generation triggered")

	post, err := s.pipeline.Run(ctx)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "daily generation failed",
			slog.String("error", err.Error()))
		return
	}

	middleware.Logger.InfoContext(ctx, "daily generation completed",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.String("theme", post.Theme),
	)
}
