package service

import (
	"context"
	"sync"
	"time"

	"contacts-server/internal/interfaces"

	"go.uber.org/zap"
)

const cleanupRunTimeout = 30 * time.Second

// TokenCleanupJob periodically deletes expired refresh tokens and tokens that
// stayed revoked longer than the configured retention.
type TokenCleanupJob struct {
	refreshRepo interfaces.RefreshTokenRepository
	interval    time.Duration
	retention   time.Duration
	logger      *zap.Logger
	done        chan struct{}
	wg          sync.WaitGroup
}

// NewTokenCleanupJob creates a cleanup job. Call Start to launch it and Stop
// to shut it down.
func NewTokenCleanupJob(refreshRepo interfaces.RefreshTokenRepository, interval, retention time.Duration, logger *zap.Logger) *TokenCleanupJob {
	return &TokenCleanupJob{
		refreshRepo: refreshRepo,
		interval:    interval,
		retention:   retention,
		logger:      logger.Named("TokenCleanup"),
		done:        make(chan struct{}),
	}
}

// Start launches the background cleanup loop.
func (j *TokenCleanupJob) Start() {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.logger.Info("Token cleanup job started",
			zap.Duration("interval", j.interval),
			zap.Duration("revokedRetention", j.retention))

		for {
			select {
			case <-ticker.C:
				j.runOnce()
			case <-j.done:
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for the current run to finish.
func (j *TokenCleanupJob) Stop() {
	close(j.done)
	j.wg.Wait()
	j.logger.Info("Token cleanup job stopped")
}

func (j *TokenCleanupJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupRunTimeout)
	defer cancel()

	count, err := j.refreshRepo.PurgeStale(ctx, j.retention)
	if err != nil {
		j.logger.Error("Refresh token cleanup failed", zap.Error(err))
		return
	}
	if count > 0 {
		j.logger.Debug("Refresh token cleanup completed", zap.Int64("purged", count))
	}
}
