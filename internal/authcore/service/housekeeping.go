package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/swiftmeds/authcore/internal/authcore/store"
)

// HousekeepingService periodically prunes the token blacklist and clears
// expired password-reset tokens so the database does not grow without
// bound. Pruning never changes authorization outcomes: an expired token
// already fails its own expiry check.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the background pruner. An interval of 0 or
// less defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts down the worker, running one final sweep first so a clean
// shutdown leaves no garbage behind. Blocks until the worker has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.cleanup()
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep once at startup before the first tick.
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs each sweep independently so one failure does not stop the
// others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now()

	if n, err := s.Store.Blacklist().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("blacklist prune failed", "error", err)
	} else if n > 0 {
		s.Logger.Info("pruned blacklist entries", "count", n)
	}

	if n, err := s.Store.Users().ClearExpiredResetTokens(ctx, now); err != nil {
		s.Logger.Error("reset token sweep failed", "error", err)
	} else if n > 0 {
		s.Logger.Info("cleared expired reset tokens", "count", n)
	}
}
