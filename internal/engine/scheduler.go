package engine

import (
	"context"
	"errors"
	"time"

	"github.com/adhocore/gronx"

	"github.com/alexisbeaulieu97/signalboard/internal/logger"
	apperrors "github.com/alexisbeaulieu97/signalboard/pkg/errors"
)

// SchedulerConfig selects the background cadence. Cron takes precedence over
// Interval when both are set; the expression is evaluated with gronx once per tick.
type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

// Scheduler runs RefreshAll(force=false) on a recurring tick. It is an
// additive convenience over the engine: stopping it never leaves a batch
// half-applied, because Stop waits for the loop (and any in-flight batch) to
// finish before returning.
type Scheduler struct {
	engine *Engine
	logger *logger.Logger
	cfg    SchedulerConfig
	gron   *gronx.Gronx

	stop chan struct{}
	done chan struct{}
}

// NewScheduler validates the cadence and returns a stopped scheduler.
func NewScheduler(eng *Engine, log *logger.Logger, cfg SchedulerConfig) (*Scheduler, error) {
	g := gronx.New()
	if cfg.Cron != "" && !g.IsValid(cfg.Cron) {
		return nil, apperrors.NewValidationError("scheduler.cron", "invalid cron expression", nil)
	}
	if cfg.Cron == "" && cfg.Interval <= 0 {
		return nil, apperrors.NewValidationError("scheduler", "either cron or a positive interval is required", nil)
	}

	return &Scheduler{
		engine: eng,
		logger: log,
		cfg:    cfg,
		gron:   g,
	}, nil
}

// Start launches the background loop. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	tick := s.cfg.Interval
	if s.cfg.Cron != "" {
		// Cron resolution is one minute; poll the expression on that grid.
		tick = time.Minute
	}

	go s.loop(ctx, tick)
}

func (s *Scheduler) loop(ctx context.Context, tick time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case t := <-ticker.C:
			if s.cfg.Cron != "" {
				due, err := s.gron.IsDue(s.cfg.Cron, t)
				if err != nil || !due {
					continue
				}
			}
			s.runOnce(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	_, err := s.engine.RefreshAll(ctx, false)
	if err == nil {
		return
	}
	if errors.Is(err, apperrors.ErrAlreadyRefreshing) {
		s.logDebug("tick skipped, batch already in flight")
		return
	}
	if s.logger != nil {
		s.logger.Error(err, "background refresh failed")
	}
}

// Stop halts the loop and blocks until it has fully drained, bounded by ctx.
// An in-flight batch completes inside the loop before done is closed.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}

	close(s.stop)
	select {
	case <-s.done:
		s.stop = nil
		s.done = nil
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) logDebug(msg string) {
	if s.logger == nil {
		return
	}
	s.logger.Debug(msg)
}
