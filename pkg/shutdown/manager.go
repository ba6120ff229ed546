package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recon_shutdown_duration_seconds",
		Help:    "Wall time of a graceful shutdown",
		Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800},
	})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recon_shutdown_step_duration_seconds",
		Help:    "Wall time of each shutdown step",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 300, 1800},
	}, []string{"step"})

	stepErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_shutdown_step_errors_total",
		Help: "Shutdown steps that returned an error",
	}, []string{"step"})
)

// StopFunc stops one component. It should return promptly once ctx is done.
type StopFunc func(ctx context.Context) error

type step struct {
	name string
	stop StopFunc
}

// Sequence stops service components one at a time in reverse registration
// order. Register dependencies (database) first and entry points (scheduler,
// readiness) last.
type Sequence struct {
	logger  *zap.Logger
	timeout time.Duration

	mu    sync.Mutex
	steps []step
}

// NewSequence creates a shutdown sequence bounded by timeout
func NewSequence(logger *zap.Logger, timeout time.Duration) *Sequence {
	return &Sequence{logger: logger, timeout: timeout}
}

// Add registers a step. http.Server.Shutdown and scheduler.Stop fit directly.
func (s *Sequence) Add(name string, stop StopFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step{name: name, stop: stop})
}

// AddFunc registers a step that cannot fail or block
func (s *Sequence) AddFunc(name string, stop func()) {
	s.Add(name, func(context.Context) error {
		stop()
		return nil
	})
}

// WaitForSignal blocks until SIGINT or SIGTERM, then runs Stop
func (s *Sequence) WaitForSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	sig := <-sigs
	s.logger.Info("Shutdown signal received",
		zap.String("signal", sig.String()),
		zap.Duration("timeout", s.timeout),
	)

	if err := s.Stop(); err != nil {
		s.logger.Error("Shutdown finished with errors", zap.Error(err))
	}
}

// Stop runs every step under the shared deadline. A failing step does not
// skip the rest; steps after the deadline still run with the expired context
// so they release resources immediately.
func (s *Sequence) Stop() error {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	steps := append([]step(nil), s.steps...)
	s.mu.Unlock()

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		st := steps[i]
		stepStart := time.Now()

		err := st.stop(ctx)
		elapsed := time.Since(stepStart)
		stepDuration.WithLabelValues(st.name).Observe(elapsed.Seconds())

		if err != nil {
			stepErrors.WithLabelValues(st.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", st.name, err))
			s.logger.Error("Shutdown step failed",
				zap.String("step", st.name),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			continue
		}
		s.logger.Info("Shutdown step completed",
			zap.String("step", st.name),
			zap.Duration("elapsed", elapsed),
		)
	}

	if ctx.Err() != nil {
		s.logger.Warn("Shutdown deadline exceeded", zap.Duration("timeout", s.timeout))
	}
	shutdownDuration.Observe(time.Since(started).Seconds())
	return errors.Join(errs...)
}
