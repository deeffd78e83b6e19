package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/05vukasin/check-in/internal/location"
)

// DefaultReportInterval matches the mobile client's background location
// cadence.
const DefaultReportInterval = 10 * time.Second

// Reporter drives the geofence notifier: it owns the cadence, acquires a fix
// from the location source each tick and hands it to HandleFix.  Consecutive
// invocations are serial by construction; there is no fix queue.
type Reporter struct {
	source   location.Source
	notifier *GeofenceNotifier
	logger   *slog.Logger
}

func NewReporter(source location.Source, notifier *GeofenceNotifier, logger *slog.Logger) *Reporter {
	return &Reporter{source: source, notifier: notifier, logger: logger}
}

// Run reports once immediately and then on every tick until ctx is
// cancelled.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReportInterval
	}

	r.report(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("location reporting stopped")
			return
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

func (r *Reporter) report(ctx context.Context) {
	fix, err := r.source.Current(ctx)
	if err != nil {
		// Denied or slow location is a per-tick condition, not a crash.
		r.logger.Warn("location fix unavailable", slog.String("error", err.Error()))
		return
	}
	r.notifier.HandleFix(ctx, fix)
}
