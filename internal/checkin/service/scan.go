package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/05vukasin/check-in/internal/checkin/types"
	"github.com/05vukasin/check-in/internal/location"
	"github.com/05vukasin/check-in/internal/remote"
)

// DefaultScanCooldown is how long the result stays on screen and further
// decode events are dropped.
const DefaultScanCooldown = 7 * time.Second

var (
	ErrScanInFlight   = errors.New("scan already in flight")
	ErrInvalidPayload = errors.New("qr payload is not a valid check-in code")
)

// User-facing result messages.
const (
	msgInvalidCode    = "QR kod nije validan."
	msgLocationDenied = "Lokacija nije dostupna."
	msgOutsideRadius  = "Niste u dozvoljenom krugu."
	msgSubmitFailed   = "Greška pri slanju zahteva."
	msgCheckInOK      = "Check-in uspešan!"
	msgCheckOutOK     = "Check-out uspešan!"
)

// ScanState tracks where the workflow is in one decode-to-result cycle.
type ScanState int

const (
	StateIdle ScanState = iota
	StateDecoding
	StateLocationGate
	StateSubmitting
	StateResult
	StateCooldown
)

func (s ScanState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoding:
		return "decoding"
	case StateLocationGate:
		return "location_gate"
	case StateSubmitting:
		return "submitting"
	case StateResult:
		return "result"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// ScanResult is what the UI layer shows the worker after a scan.
type ScanResult struct {
	Success bool
	Message string
}

// ScanConfig carries the workflow's collaborators.
type ScanConfig struct {
	Client *remote.Client
	Source location.Source

	// OnSuccess is invoked once after a successful check-in or check-out so
	// dependent views can re-poll status.  May be nil.
	OnSuccess func()

	Logger *slog.Logger

	// Cooldown overrides DefaultScanCooldown when positive (tests shorten
	// it).
	Cooldown time.Duration
}

// ScanWorkflow is the state machine behind the QR scanner.  One attempt is
// active at a time per workflow instance: the state guard is the only
// concurrency control, and extra scans are dropped, never queued.
type ScanWorkflow struct {
	client    *remote.Client
	source    location.Source
	onSuccess func()
	logger    *slog.Logger
	cooldown  time.Duration

	mu    sync.Mutex
	state ScanState
}

func NewScanWorkflow(cfg ScanConfig) *ScanWorkflow {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultScanCooldown
	}
	return &ScanWorkflow{
		client:    cfg.Client,
		source:    cfg.Source,
		onSuccess: cfg.OnSuccess,
		logger:    cfg.Logger,
		cooldown:  cooldown,
		state:     StateIdle,
	}
}

// State returns the current machine state.
func (w *ScanWorkflow) State() ScanState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// HandleScan runs one decode event through the machine.  If an attempt is
// already in flight (including its cooldown window) the event is rejected
// with ErrScanInFlight and otherwise ignored.
func (w *ScanWorkflow) HandleScan(ctx context.Context, sess types.WorkerSession, raw string) (ScanResult, error) {
	w.mu.Lock()
	if w.state != StateIdle {
		w.mu.Unlock()
		return ScanResult{}, ErrScanInFlight
	}
	w.state = StateDecoding
	w.mu.Unlock()

	res := w.run(ctx, sess, raw)

	w.setState(StateResult)
	w.logger.Info("scan finished",
		slog.Bool("success", res.Success),
		slog.String("message", res.Message))

	// The result window doubles as the debounce: the machine stays closed
	// until the cooldown fires, then everything transient clears.
	w.setState(StateCooldown)
	time.AfterFunc(w.cooldown, func() { w.setState(StateIdle) })

	return res, nil
}

func (w *ScanWorkflow) run(ctx context.Context, sess types.WorkerSession, raw string) ScanResult {
	attempt, err := ParseScanPayload(raw)
	if err != nil {
		return ScanResult{Message: msgInvalidCode}
	}

	if attempt.Type == types.ScanEntry {
		w.setState(StateLocationGate)

		fix, err := w.source.Current(ctx)
		if err != nil {
			w.logger.Warn("location gate failed", slog.String("error", err.Error()))
			return ScanResult{Message: msgLocationDenied}
		}

		if err := w.client.SendLocation(ctx, sess.Organisation, sess.WorkerID, fix); err != nil {
			w.logger.Warn("location ingest failed", slog.String("error", err.Error()))
		}

		allowed, err := w.client.CheckLocation(ctx, sess.Organisation, fix)
		if err != nil {
			w.logger.Warn("geofence check failed", slog.String("error", err.Error()))
			return ScanResult{Message: msgSubmitFailed}
		}
		if !allowed {
			return ScanResult{Message: msgOutsideRadius}
		}
	}

	w.setState(StateSubmitting)

	if attempt.Type == types.ScanEntry {
		err = w.client.CheckIn(ctx, sess.Organisation, attempt.Token, sess.WorkerID)
	} else {
		err = w.client.CheckOut(ctx, sess.Organisation, attempt.Token, sess.WorkerID)
	}
	if err != nil {
		w.logger.Warn("attendance submit failed", slog.String("error", err.Error()))
		return ScanResult{Message: msgSubmitFailed}
	}

	if w.onSuccess != nil {
		w.onSuccess()
	}

	msg := msgCheckInOK
	if attempt.Type == types.ScanExit {
		msg = msgCheckOutOK
	}
	return ScanResult{Success: true, Message: msg}
}

func (w *ScanWorkflow) setState(s ScanState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// ParseScanPayload decodes a QR payload: a URL whose query carries an opaque
// token and a type of entry or exit.  Any other shape is invalid input.
func ParseScanPayload(raw string) (types.ScanAttempt, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return types.ScanAttempt{}, ErrInvalidPayload
	}

	q := u.Query()
	token := q.Get("token")
	typ := types.ScanType(q.Get("type"))

	if token == "" {
		return types.ScanAttempt{}, ErrInvalidPayload
	}
	if typ != types.ScanEntry && typ != types.ScanExit {
		return types.ScanAttempt{}, ErrInvalidPayload
	}

	return types.ScanAttempt{Token: token, Type: typ}, nil
}
