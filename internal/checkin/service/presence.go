package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/05vukasin/check-in/internal/checkin/store"
	"github.com/05vukasin/check-in/internal/checkin/types"
	"github.com/05vukasin/check-in/internal/remote"
)

// DefaultPresenceInterval is the polling cadence for the online-worker list.
const DefaultPresenceInterval = 20 * time.Second

// PresenceCache keeps a durable, best-effort-fresh snapshot of co-workers'
// last known positions.  Refreshes never surface errors: on any failure the
// last good snapshot keeps being served, and the next tick retries.
type PresenceCache struct {
	store    *store.Store
	client   *remote.Client
	logger   *slog.Logger
	onChange func([]types.WorkerPresence)

	busy atomic.Bool
}

// NewPresenceCache builds a cache publishing changed snapshots to onChange.
// onChange may be nil.
func NewPresenceCache(st *store.Store, client *remote.Client, logger *slog.Logger, onChange func([]types.WorkerPresence)) *PresenceCache {
	return &PresenceCache{
		store:    st,
		client:   client,
		logger:   logger,
		onChange: onChange,
	}
}

// LoadCached returns the last persisted snapshot, or an empty one.  It never
// fails the caller: store and parse problems degrade to empty.
func (c *PresenceCache) LoadCached(ctx context.Context) []types.WorkerPresence {
	workers, err := c.store.Snapshot(ctx)
	if err != nil {
		c.logger.Warn("cached snapshot unreadable", slog.String("error", err.Error()))
		return nil
	}
	return workers
}

// Refresh fetches the online-worker list and, only if it differs from the
// persisted snapshot, stores it and notifies the subscriber.  Returns
// whether anything changed.  Overlapping refreshes are skipped, not queued.
func (c *PresenceCache) Refresh(ctx context.Context, org string) bool {
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Debug("presence refresh already in flight, skipping")
		return false
	}
	defer c.busy.Store(false)

	fresh, err := c.client.OnlineWorkers(ctx, org)
	if err != nil {
		c.logger.Warn("presence refresh failed", slog.String("error", err.Error()))
		return false
	}

	old := c.LoadCached(ctx)
	if !presenceChanged(old, fresh) {
		return false
	}

	if err := c.store.SetSnapshot(ctx, fresh); err != nil {
		// Publish anyway: the UI should see the fresh list even when the
		// durable copy lags a cycle behind.
		c.logger.Warn("snapshot not persisted", slog.String("error", err.Error()))
	}
	if c.onChange != nil {
		c.onChange(fresh)
	}

	c.logger.Debug("presence snapshot updated", slog.Int("workers", len(fresh)))
	return true
}

// Run polls once immediately and then on every tick until ctx is cancelled.
// Cancellation is mandatory on logout: a dangling poller writing to the
// store after the session is gone is a defect.
func (c *PresenceCache) Run(ctx context.Context, org string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPresenceInterval
	}

	c.Refresh(ctx, org)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("presence polling stopped")
			return
		case <-ticker.C:
			c.Refresh(ctx, org)
		}
	}
}

// presenceChanged is deliberately order-sensitive: the feed has no stable
// identity per entry, so position is identity.  A reordered but otherwise
// identical list counts as a change.
func presenceChanged(old, fresh []types.WorkerPresence) bool {
	if len(old) != len(fresh) {
		return true
	}
	for i := range fresh {
		if old[i].Name != fresh[i].Name ||
			old[i].Lat != fresh[i].Lat ||
			old[i].Lon != fresh[i].Lon {
			return true
		}
	}
	return false
}
