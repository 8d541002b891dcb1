package worker

import (
	"context"
	"time"

	"github.com/rookgm/brewtrack/internal/logger"
	"go.uber.org/zap"
)

// default delay between restarts
const defaultDelay = 5 * time.Second

// Runner is a long-running job that returns when its connection drops
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Supervisor keeps a runner alive, restarting it on the next tick after it stops
type Supervisor struct {
	name   string
	runner Runner
	delay  time.Duration
}

// NewSupervisor creates new supervisor. delay <= 0 uses default.
func NewSupervisor(name string, runner Runner, delay time.Duration) *Supervisor {
	if delay <= 0 {
		delay = defaultDelay
	}
	return &Supervisor{
		name:   name,
		runner: runner,
		delay:  delay,
	}
}

// Run starts the runner and restarts it until ctx is done. It always returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.delay)
	defer ticker.Stop()

	for {
		if err := s.runner.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Log.Warn("worker stopped", zap.String("worker", s.name), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			logger.Log.Debug("worker is done", zap.String("worker", s.name))
			return nil
		case <-ticker.C:
		}
	}
}
