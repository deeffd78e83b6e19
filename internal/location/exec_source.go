package location

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/05vukasin/check-in/internal/checkin/types"
)

const defaultExecTimeout = 15 * time.Second

// ExecSource shells out to a platform helper that prints the current
// position as JSON, e.g. termux-location on Android or a gpsd wrapper on
// Linux handhelds.  Expected output shape: {"lat": .., "lon": ..}.
type ExecSource struct {
	// Name and Args form the command to run, e.g. "termux-location".
	Name string
	Args []string

	// Timeout bounds one acquisition.  Zero means defaultExecTimeout.
	Timeout time.Duration
}

func (s ExecSource) Current(ctx context.Context) (types.LocationFix, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.Name, s.Args...).Output()
	if err != nil {
		return types.LocationFix{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, s.Name, err)
	}

	var pos struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := json.Unmarshal(out, &pos); err != nil {
		return types.LocationFix{}, fmt.Errorf("%w: parse %s output: %v", ErrUnavailable, s.Name, err)
	}

	return types.LocationFix{
		Latitude:   pos.Lat,
		Longitude:  pos.Lon,
		CapturedAt: time.Now().UTC(),
	}, nil
}
