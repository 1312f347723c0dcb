package etl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// scheduler runs a pass immediately and then on every tick of a cron spec.
// Overlapping passes are skipped.
type scheduler struct {
	spec     string
	schedule cron.Schedule
	runner   passRunner
	logger   *zap.Logger

	cron    *cron.Cron
	running sync.Mutex
	ready   atomic.Bool
	wg      sync.WaitGroup
}

func newScheduler(spec string, runner passRunner, logger *zap.Logger) (*scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &scheduler{
		spec:     spec,
		schedule: schedule,
		runner:   runner,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
	}, nil
}

func (s *scheduler) start(ctx context.Context) {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.runPass(ctx) }))
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("schedule", s.spec))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runPass(ctx)
	}()
}

func (s *scheduler) stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *scheduler) isReady() bool {
	return s.ready.Load()
}

func (s *scheduler) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !s.running.TryLock() {
		s.logger.Warn("Previous pass still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	// the pass logs its own failure; the process keeps running
	if err := s.runner.Run(ctx); err != nil {
		return
	}
	s.ready.Store(true)
}
