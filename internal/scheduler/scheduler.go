// Package scheduler fires the reconciliation run three times a day.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kevin07696/recon-service/internal/services/ports"
	"github.com/kevin07696/recon-service/pkg/resilience"
)

const (
	// Spec fires at 10:00, 16:00 and 22:00
	Spec = "0 10,16,22 * * *"

	// Timezone the schedule is evaluated in
	Timezone = "Asia/Kolkata"
)

// Scheduler triggers reconciliation runs on the fixed schedule
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	location *time.Location
	service  ports.ReconciliationService
	timeouts *resilience.TimeoutConfig
	logger   *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// New constructs a Scheduler. Runs still in progress when the next tick
// arrives cause that tick to be skipped.
func New(service ports.ReconciliationService, timeouts *resilience.TimeoutConfig, logger *zap.Logger) (*Scheduler, error) {
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}

	loc := loadLocation(logger)
	schedule, err := cron.ParseStandard(Spec)
	if err != nil {
		return nil, err
	}

	cronLogger := zapCronLogger{logger: logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:     c,
		schedule: schedule,
		location: loc,
		service:  service,
		timeouts: timeouts,
		logger:   logger,
		baseCtx:  baseCtx,
		cancel:   cancel,
	}

	c.Schedule(schedule, cron.FuncJob(s.runScheduled))
	return s, nil
}

// Start begins firing in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Reconciliation scheduler started",
		zap.String("spec", Spec),
		zap.String("timezone", s.location.String()),
		zap.Time("next_run", s.Next(time.Now())),
	)
}

// Stop prevents further runs and waits for an in-progress run to finish.
// If ctx expires first the in-progress run is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.once.Do(s.cancel)
		return nil
	case <-ctx.Done():
		s.once.Do(s.cancel)
		return ctx.Err()
	}
}

// Next returns the first scheduled run after t
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := s.timeouts.RunContext(s.baseCtx)
	defer cancel()

	summary, err := s.service.Run(ctx, ports.RunRequest{Trigger: ports.TriggerSchedule})
	if err != nil {
		s.logger.Error("Scheduled reconciliation run failed", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled reconciliation run completed",
		zap.String("run_id", summary.RunID),
		zap.String("settlement_date", summary.SettlementDate),
		zap.Int("merchants_failed", summary.MerchantsFailed),
	)
}

func loadLocation(logger *zap.Logger) *time.Location {
	loc, err := time.LoadLocation(Timezone)
	if err != nil {
		logger.Warn("Timezone database unavailable, using fixed IST offset", zap.Error(err))
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	logger *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
