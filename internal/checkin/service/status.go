package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/05vukasin/check-in/internal/checkin/types"
	"github.com/05vukasin/check-in/internal/remote"
)

// DefaultStatusInterval is how often the checked-in indicator re-polls.
const DefaultStatusInterval = 10 * time.Second

// StatusWatcher polls the worker's check-in status and publishes the in/out
// flag to a subscriber on change.  Refresh pokes an immediate re-poll, which
// is how a successful scan makes the indicator flip without waiting a tick.
type StatusWatcher struct {
	client   *remote.Client
	logger   *slog.Logger
	onChange func(checkedIn bool)

	refresh chan struct{}
}

func NewStatusWatcher(client *remote.Client, logger *slog.Logger, onChange func(bool)) *StatusWatcher {
	return &StatusWatcher{
		client:   client,
		logger:   logger,
		onChange: onChange,
		refresh:  make(chan struct{}, 1),
	}
}

// Refresh requests an immediate poll.  Non-blocking; pokes coalesce.
func (sw *StatusWatcher) Refresh() {
	select {
	case sw.refresh <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (sw *StatusWatcher) Run(ctx context.Context, sess types.WorkerSession, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultStatusInterval
	}

	var (
		known   bool
		current bool
	)

	poll := func() {
		checkedIn, err := sw.client.WorkerStatus(ctx, sess.Organisation, sess.WorkerID)
		if err != nil {
			sw.logger.Warn("status poll failed", slog.String("error", err.Error()))
			return
		}
		if known && checkedIn == current {
			return
		}
		known = true
		current = checkedIn
		if sw.onChange != nil {
			sw.onChange(checkedIn)
		}
	}

	poll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.logger.Debug("status polling stopped")
			return
		case <-ticker.C:
			poll()
		case <-sw.refresh:
			poll()
		}
	}
}
