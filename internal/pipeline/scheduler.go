package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
	"github.com/robfig/cron/v3"
)

const shutdownTimeout = 30 * time.Second

// Scheduler runs the pipeline on a cron schedule until its context ends.
// A run still in progress when the next tick fires is not overlapped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	runner   *Runner
	onReport func(*report.Report)
}

// NewScheduler validates spec (standard five-field cron or a descriptor
// such as "@hourly") and creates a scheduler. onReport receives every
// finished report and may be nil.
func NewScheduler(spec string, runner *Runner, onReport func(*report.Report)) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{
		spec:     spec,
		schedule: schedule,
		runner:   runner,
		onReport: onReport,
	}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start runs once immediately, then on every activation. It blocks until
// ctx is cancelled and waits for an in-flight run before returning.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	job := c.Schedule(s.schedule, cron.FuncJob(func() { s.runOnce(ctx) }))

	slog.Info("[Scheduler] Starting validation scheduler", "schedule", s.spec)

	// Initial run so a fresh deployment reports without waiting for the first tick.
	c.Entry(job).WrappedJob.Run()

	c.Start()
	<-ctx.Done()

	slog.Info("[Scheduler] Stopping (context cancelled)")
	stopped := c.Stop()

	select {
	case <-stopped.Done():
		slog.Info("[Scheduler] Stopped")
	case <-time.After(shutdownTimeout):
		slog.Warn("[Scheduler] Timed out waiting for the running validation", "timeout", shutdownTimeout)
	}
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	rep := s.runner.Run(ctx)
	slog.Info("[Scheduler] Scheduled run finished",
		"run_id", rep.RunID,
		"exit_code", int(rep.ExitCode),
		"exit", rep.ExitCode.String(),
		"next", s.schedule.Next(time.Now()).Format(time.RFC3339))
	if s.onReport != nil {
		s.onReport(rep)
	}
}

// cronLogger routes cron's logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("[Scheduler] "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("[Scheduler] "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
