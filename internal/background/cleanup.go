package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/alexbespwalker/walker-brain-portal/internal/cache"
	"github.com/alexbespwalker/walker-brain-portal/internal/services"
)

// CleanupManager periodically purges expired sessions and evicts expired
// cache entries. Both are also handled lazily on access; this keeps the
// tables and the cache from accumulating dead weight between accesses.
type CleanupManager struct {
	sessions      *services.SessionService
	cache         *cache.Cache
	logger        *slog.Logger
	sweepSessions time.Duration
	sweepCache    time.Duration
	stopCh        chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	sessions *services.SessionService,
	c *cache.Cache,
	logger *slog.Logger,
	sweepSessions time.Duration,
	sweepCache time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sessions:      sessions,
		cache:         c,
		logger:        logger,
		sweepSessions: sweepSessions,
		sweepCache:    sweepCache,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the periodic sweeps. Blocks until Stop or ctx cancellation.
func (cm *CleanupManager) Start(ctx context.Context) {
	sessionTicker := time.NewTicker(cm.sweepSessions)
	defer sessionTicker.Stop()
	cacheTicker := time.NewTicker(cm.sweepCache)
	defer cacheTicker.Stop()

	// Run immediately on startup
	cm.runSessionSweep(ctx)

	for {
		select {
		case <-sessionTicker.C:
			cm.runSessionSweep(ctx)
		case <-cacheTicker.C:
			cm.runCacheSweep()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runSessionSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := cm.sessions.SweepExpired(sweepCtx)
	if err != nil {
		cm.logger.Error("failed to sweep expired sessions", slog.Any("error", err))
		return
	}
	if removed > 0 {
		cm.logger.Info("session sweep completed", slog.Int("rows_deleted", removed))
	}
}

func (cm *CleanupManager) runCacheSweep() {
	evicted := cm.cache.Sweep()
	if evicted > 0 {
		cm.logger.Info("cache sweep completed", slog.Int("entries_evicted", evicted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
