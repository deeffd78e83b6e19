package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/05vukasin/check-in/internal/checkin/store"
	"github.com/05vukasin/check-in/internal/checkin/types"
	"github.com/05vukasin/check-in/internal/remote"
)

var (
	// ErrNoSession mirrors store.ErrNoSession at the service boundary.
	ErrNoSession = store.ErrNoSession

	ErrSessionInvalid = errors.New("stored session rejected by server")
	ErrInvalidLogin   = errors.New("organisation and name are required")
)

// SessionManager owns the stored WorkerSession: validating it against the
// server, establishing it via login, and clearing it.
type SessionManager struct {
	store  *store.Store
	client *remote.Client
	logger *slog.Logger
}

func NewSessionManager(st *store.Store, client *remote.Client, logger *slog.Logger) *SessionManager {
	return &SessionManager{store: st, client: client, logger: logger}
}

// Validate checks the stored session against the server.  A rejection — or
// any failure to obtain a verdict — clears the stored session and forces a
// re-login, matching the client's historical behaviour.
func (m *SessionManager) Validate(ctx context.Context) (types.WorkerSession, error) {
	sess, err := m.store.Session(ctx)
	if err != nil {
		return types.WorkerSession{}, err
	}

	ok, err := m.client.ValidateWorker(ctx, sess.Organisation, sess.WorkerID)
	if err != nil || !ok {
		if clearErr := m.store.ClearSession(ctx); clearErr != nil {
			m.logger.Warn("session clear failed", slog.String("error", clearErr.Error()))
		}
		if err != nil {
			return types.WorkerSession{}, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
		}
		return types.WorkerSession{}, ErrSessionInvalid
	}

	return sess, nil
}

// Login resolves the worker id by organisation and name and persists the
// resulting session.  The device parameter sent to the server is this
// installation's durable device id.
func (m *SessionManager) Login(ctx context.Context, organisation, name string) (types.WorkerSession, error) {
	organisation = strings.TrimSpace(organisation)
	name = strings.TrimSpace(name)
	if organisation == "" || name == "" {
		return types.WorkerSession{}, ErrInvalidLogin
	}

	device, err := m.store.DeviceID(ctx)
	if err != nil {
		return types.WorkerSession{}, err
	}

	id, err := m.client.WorkerByName(ctx, organisation, name, device)
	if err != nil {
		return types.WorkerSession{}, fmt.Errorf("login: %w", err)
	}

	sess := types.WorkerSession{WorkerID: id, Organisation: organisation}
	if err := m.store.SetSession(ctx, sess); err != nil {
		return types.WorkerSession{}, err
	}

	m.logger.Info("logged in",
		slog.Int("workerId", id),
		slog.String("organisation", organisation))
	return sess, nil
}

// Clear removes the stored session.
func (m *SessionManager) Clear(ctx context.Context) error {
	return m.store.ClearSession(ctx)
}
