// Package scheduler runs the periodic refresh-token sweep.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// SweepService is the slice of the auth service the sweeper needs.
type SweepService interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper deletes expired and revoked refresh tokens on an interval.
// Not required for correctness; unusable rows are rejected at use time
// regardless.
type Sweeper struct {
	svc      SweepService
	interval time.Duration
	stop     chan struct{}
	stopped  chan struct{}
}

func NewSweeper(svc SweepService, interval time.Duration) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: interval,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	defer close(s.stopped)

	slog.Info("token sweeper started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once on start
	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stop:
			slog.Info("token sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("token sweeper context cancelled")
			return
		}
	}
}

// Stop signals the loop to exit and waits for it.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.stopped
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.svc.SweepExpired(ctx)
	if err != nil {
		slog.Error("token sweep failed", slog.String("error", err.Error()))
		return
	}
	if deleted > 0 {
		slog.Info("swept unusable refresh tokens", slog.Int64("deleted", deleted))
	}
}
