package schedule

import (
	"context"
	"log/slog"
	"time"

	bookinghandlers "doorly/internal/app/handlers/booking"
)

// Sweeps are the time-driven transitions run on every tick.
type Sweeps interface {
	ExpireHolds(ctx context.Context, cmd bookinghandlers.ExpireHoldsCommand) (*bookinghandlers.SweepResult, error)
	CompleteStays(ctx context.Context, cmd bookinghandlers.CompleteStaysCommand) (*bookinghandlers.SweepResult, error)
}

type Sweeper struct {
	sweeps   Sweeps
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(sweeps Sweeps, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{sweeps: sweeps, interval: interval, logger: logger}
}

// Start ticks until ctx is cancelled. It always returns nil so it can run
// inside an errgroup next to the servers.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func (s *Sweeper) Tick(ctx context.Context) {
	if res, err := s.sweeps.ExpireHolds(ctx, bookinghandlers.ExpireHoldsCommand{}); err != nil {
		s.logger.Error("failed to expire holds", "error", err)
	} else if res != nil && res.Updated > 0 {
		s.logger.Info("holds expired", "count", res.Updated)
	}
	if res, err := s.sweeps.CompleteStays(ctx, bookinghandlers.CompleteStaysCommand{}); err != nil {
		s.logger.Error("failed to complete stays", "error", err)
	} else if res != nil && res.Updated > 0 {
		s.logger.Info("stays completed", "count", res.Updated)
	}
}
