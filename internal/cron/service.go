package cron

import (
	"context"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/metrics"
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Locks      LockFactory
	Metrics    *metrics.CronJobMetrics
	RunOnStart bool
}

// Service schedules registered jobs with robfig/cron. Each run takes a
// per-job Redis lock so only one replica executes it.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	locks      LockFactory
	metrics    *metrics.CronJobMetrics
	runOnStart bool
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock factory required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		locks:      params.Locks,
		metrics:    params.Metrics,
		runOnStart: params.RunOnStart,
	}, nil
}

// Run starts the scheduler and blocks until the context is canceled, then
// waits for in-flight jobs to finish.
func (s *Service) Run(ctx context.Context) error {
	scheduler, err := s.schedule(ctx)
	if err != nil {
		return err
	}
	if s.runOnStart {
		s.runAll(ctx)
	}

	scheduler.Start()
	<-ctx.Done()
	s.logg.Info(ctx, "cron service context canceled")
	<-scheduler.Stop().Done()
	return ctx.Err()
}

func (s *Service) schedule(ctx context.Context) (*robfig.Cron, error) {
	scheduler := robfig.New(
		robfig.WithLocation(time.UTC),
		robfig.WithChain(robfig.Recover(cronLogger{ctx: ctx, logg: s.logg})),
	)
	for _, entry := range s.registry.Entries() {
		job := entry.Job
		if _, err := scheduler.AddFunc(entry.Schedule, func() { s.runJob(ctx, job) }); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", job.Name(), entry.Schedule, err)
		}
	}
	return scheduler, nil
}

func (s *Service) runAll(ctx context.Context) {
	for _, entry := range s.registry.Entries() {
		s.runJob(ctx, entry.Job)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})

	lock, err := s.locks(job.Name())
	if err != nil {
		s.logg.Error(jobCtx, "failed to build job lock", err)
		return
	}
	locked, err := lock.Acquire(jobCtx)
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		return
	}
	if !locked {
		s.logg.Info(jobCtx, "job running on another instance; skipping")
		s.metrics.Skipped(job.Name())
		return
	}
	defer func() {
		if relErr := lock.Release(jobCtx); relErr != nil {
			s.logg.Error(jobCtx, "failed to release job lock", relErr)
		}
	}()

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.Observe(job.Name(), duration, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Info(jobCtx, "job completed")
}

// cronLogger adapts the structured logger to robfig's logger interface.
type cronLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logg.Debug(l.logg.WithFields(l.ctx, kvFields(keysAndValues)), msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logg.Error(l.logg.WithFields(l.ctx, kvFields(keysAndValues)), msg, err)
}

func kvFields(keysAndValues []interface{}) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
