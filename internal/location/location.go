// Package location abstracts where the agent gets position fixes from.  The
// pipeline treats the source as potentially slow or denying: every caller
// must survive an error without crashing.
package location

import (
	"context"
	"errors"
	"time"

	"github.com/05vukasin/check-in/internal/checkin/types"
)

var ErrUnavailable = errors.New("location unavailable")

// Source delivers the device's current position.  Implementations should
// honour ctx; acquisition can take seconds on real hardware.
type Source interface {
	Current(ctx context.Context) (types.LocationFix, error)
}

// FixedSource always reports the same coordinates.  Used for development and
// for kiosk-style installations that physically cannot move.
type FixedSource struct {
	Lat float64
	Lon float64
}

func (s FixedSource) Current(_ context.Context) (types.LocationFix, error) {
	return types.LocationFix{
		Latitude:   s.Lat,
		Longitude:  s.Lon,
		CapturedAt: time.Now().UTC(),
	}, nil
}
