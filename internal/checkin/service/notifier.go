package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/05vukasin/check-in/internal/checkin/store"
	"github.com/05vukasin/check-in/internal/checkin/types"
	"github.com/05vukasin/check-in/internal/notify"
	"github.com/05vukasin/check-in/internal/remote"
)

// DefaultNotificationThrottle is the minimum gap between two geofence
// notifications.  One nudge per shift is the intent.
const DefaultNotificationThrottle = 12 * time.Hour

const (
	notificationTitle = "Blizu ste posla"
	notificationBody  = "Prijavite se na posao jednim klikom."
)

// GeofenceNotifier turns raw location fixes into at most one throttled
// "you are near work" notification.  It is invoked by a dispatcher it does
// not control, so it keeps no cross-invocation state in memory: the session
// and the throttle timestamp are read from the durable store on every fix.
//
// HandleFix never surfaces an error.  Every failure degrades to "no
// notification this fix"; the next dispatcher invocation is the retry.
type GeofenceNotifier struct {
	store    *store.Store
	client   *remote.Client
	sender   notify.Sender
	logger   *slog.Logger
	throttle time.Duration
}

func NewGeofenceNotifier(st *store.Store, client *remote.Client, sender notify.Sender, logger *slog.Logger, throttle time.Duration) *GeofenceNotifier {
	if throttle <= 0 {
		throttle = DefaultNotificationThrottle
	}
	return &GeofenceNotifier{
		store:    st,
		client:   client,
		sender:   sender,
		logger:   logger,
		throttle: throttle,
	}
}

// HandleFix processes one location fix: report it, check the geofence, and
// notify if allowed and not throttled.
func (n *GeofenceNotifier) HandleFix(ctx context.Context, fix types.LocationFix) {
	sess, err := n.store.Session(ctx)
	if errors.Is(err, store.ErrNoSession) {
		// Idle state, not a failure: nobody is logged in.
		n.logger.Debug("fix dropped, no session")
		return
	}
	if err != nil {
		n.logger.Warn("fix dropped, session read failed", slog.String("error", err.Error()))
		return
	}

	// Ingest is best-effort; its failure must not block the geofence check.
	if err := n.client.SendLocation(ctx, sess.Organisation, sess.WorkerID, fix); err != nil {
		n.logger.Warn("location ingest failed", slog.String("error", err.Error()))
	}

	allowed, err := n.client.CheckLocation(ctx, sess.Organisation, fix)
	if err != nil {
		// Fail closed: an unreadable verdict is "not allowed".
		n.logger.Warn("geofence check failed", slog.String("error", err.Error()))
		return
	}
	if !allowed {
		n.logger.Debug("outside geofence, no notification")
		return
	}

	last, ok, err := n.store.LastNotification(ctx)
	if err != nil {
		// Fail closed here too; better a missed nudge than a spammy one.
		n.logger.Warn("throttle state read failed", slog.String("error", err.Error()))
		return
	}
	if ok {
		elapsed := time.Since(last)
		if elapsed < n.throttle {
			n.logger.Debug("notification suppressed by throttle",
				slog.Duration("elapsed", elapsed))
			return
		}
	}

	err = n.sender.Send(ctx, notify.Notification{
		Title: notificationTitle,
		Body:  notificationBody,
		Data:  map[string]string{"screen": "QR"},
	})
	if err != nil {
		n.logger.Warn("notification send failed", slog.String("error", err.Error()))
		return
	}

	// Persisting after sending means a failed write can produce a duplicate
	// notification on the next fix.  Accepted: over-notifying once beats
	// silently swallowing a nudge that was never shown.
	if err := n.store.SetLastNotification(ctx, time.Now().UTC()); err != nil {
		n.logger.Warn("throttle timestamp not persisted, duplicate possible",
			slog.String("error", err.Error()))
		return
	}

	n.logger.Info("geofence notification sent",
		slog.Int("workerId", sess.WorkerID),
		slog.String("organisation", sess.Organisation))
}
