package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/05vukasin/check-in/internal/checkin/types"
)

// Key names mirror the secure-store entries of the mobile client so that a
// database written by one client version stays readable by the next.
const (
	KeyWorkerID         = "workerId"
	KeyOrganisation     = "organisation"
	KeyLastWorkers      = "lastWorkers"
	KeyLastNotification = "last_notification_time"
	KeyDeviceID         = "deviceId"
)

var ErrNoSession = errors.New("no stored session")

// KeyStore is the durable, process-independent key/value store all pipeline
// components coordinate through.  Get reports presence explicitly so an
// absent key is not an error.
type KeyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store wraps a KeyStore with typed accessors for the handful of entries the
// attendance pipeline owns.
type Store struct {
	kv KeyStore
}

func New(kv KeyStore) *Store {
	return &Store{kv: kv}
}

// Session returns the stored worker session.  A missing or unparseable entry
// yields ErrNoSession; only the store itself failing is a real error.
func (s *Store) Session(ctx context.Context) (types.WorkerSession, error) {
	rawID, ok, err := s.kv.Get(ctx, KeyWorkerID)
	if err != nil {
		return types.WorkerSession{}, fmt.Errorf("read %s: %w", KeyWorkerID, err)
	}
	if !ok {
		return types.WorkerSession{}, ErrNoSession
	}

	org, ok, err := s.kv.Get(ctx, KeyOrganisation)
	if err != nil {
		return types.WorkerSession{}, fmt.Errorf("read %s: %w", KeyOrganisation, err)
	}
	if !ok || org == "" {
		return types.WorkerSession{}, ErrNoSession
	}

	id, err := strconv.Atoi(rawID)
	if err != nil {
		return types.WorkerSession{}, ErrNoSession
	}

	return types.WorkerSession{WorkerID: id, Organisation: org}, nil
}

func (s *Store) SetSession(ctx context.Context, sess types.WorkerSession) error {
	if err := s.kv.Set(ctx, KeyWorkerID, strconv.Itoa(sess.WorkerID)); err != nil {
		return fmt.Errorf("write %s: %w", KeyWorkerID, err)
	}
	if err := s.kv.Set(ctx, KeyOrganisation, sess.Organisation); err != nil {
		return fmt.Errorf("write %s: %w", KeyOrganisation, err)
	}
	return nil
}

func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyWorkerID); err != nil {
		return fmt.Errorf("delete %s: %w", KeyWorkerID, err)
	}
	if err := s.kv.Delete(ctx, KeyOrganisation); err != nil {
		return fmt.Errorf("delete %s: %w", KeyOrganisation, err)
	}
	return nil
}

// Snapshot returns the last persisted presence snapshot.  A missing entry or
// a corrupt payload degrades to an empty snapshot rather than an error — the
// caller prefers an empty map over a crash.
func (s *Store) Snapshot(ctx context.Context) ([]types.WorkerPresence, error) {
	raw, ok, err := s.kv.Get(ctx, KeyLastWorkers)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyLastWorkers, err)
	}
	if !ok {
		return nil, nil
	}

	var workers []types.WorkerPresence
	if err := json.Unmarshal([]byte(raw), &workers); err != nil {
		return nil, nil
	}
	return workers, nil
}

func (s *Store) SetSnapshot(ctx context.Context, workers []types.WorkerPresence) error {
	data, err := json.Marshal(workers)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, KeyLastWorkers, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", KeyLastWorkers, err)
	}
	return nil
}

// LastNotification returns when the geofence notification was last emitted.
// The value is stored as epoch milliseconds; a malformed entry is treated as
// absent so a corrupt record cannot wedge the notifier forever.
func (s *Store) LastNotification(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := s.kv.Get(ctx, KeyLastNotification)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read %s: %w", KeyLastNotification, err)
	}
	if !ok {
		return time.Time{}, false, nil
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (s *Store) SetLastNotification(ctx context.Context, t time.Time) error {
	value := strconv.FormatInt(t.UTC().UnixMilli(), 10)
	if err := s.kv.Set(ctx, KeyLastNotification, value); err != nil {
		return fmt.Errorf("write %s: %w", KeyLastNotification, err)
	}
	return nil
}

// DeviceID returns the durable random identifier this installation reports
// as its device name during login, creating and persisting one on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	id, ok, err := s.kv.Get(ctx, KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", KeyDeviceID, err)
	}
	if ok && id != "" {
		return id, nil
	}

	id = uuid.New().String()
	if err := s.kv.Set(ctx, KeyDeviceID, id); err != nil {
		return "", fmt.Errorf("write %s: %w", KeyDeviceID, err)
	}
	return id, nil
}
