package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/store"
)

// HousekeepingService periodically removes expired refresh tokens and
// long-revoked sessions so the database does not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// RevokedSessionRetention decides how long a revoked session row is
	// kept around for auditing before deletion.
	RevokedSessionRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour; retention defaults to 30 days.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:                   store,
		Logger:                  logger,
		Interval:                interval,
		RevokedSessionRetention: 30 * 24 * time.Hour,
		stopCh:                  make(chan struct{}),
		doneCh:                  make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut it
// down gracefully.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down and blocks until any in-progress cleanup has
// finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run once on startup so a restart after long downtime catches up.
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

// cleanup runs each deletion independently; a failure in one does not
// stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Debug("starting housekeeping cleanup")

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	cutoff := time.Now().Add(-s.RevokedSessionRetention)
	if err := s.Store.Sessions().DeleteRevokedSessionsBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete revoked sessions", "error", err)
	}

	s.Logger.Debug("housekeeping cleanup completed")
}
