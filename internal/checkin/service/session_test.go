package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/05vukasin/check-in/internal/checkin/service"
	"github.com/05vukasin/check-in/internal/checkin/store"
	"github.com/05vukasin/check-in/internal/checkin/store/memory"
	"github.com/05vukasin/check-in/internal/checkin/types"
)

func newTestSessionManager(t *testing.T, api *fakeAPI) (*service.SessionManager, *store.Store) {
	t.Helper()
	st := store.New(memory.New())
	return service.NewSessionManager(st, api.start(t), silentLogger()), st
}

func TestValidate_NoStoredSession(t *testing.T) {
	api := newFakeAPI()
	m, _ := newTestSessionManager(t, api)

	_, err := m.Validate(context.Background())
	if !errors.Is(err, service.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if api.totalCalls() != 0 {
		t.Error("expected no network traffic without a stored session")
	}
}

func TestValidate_OK(t *testing.T) {
	api := newFakeAPI()
	api.validateOK = true
	m, st := newTestSessionManager(t, api)
	ctx := context.Background()
	seedSession(t, st, types.WorkerSession{WorkerID: 7, Organisation: "acme"})

	sess, err := m.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sess.WorkerID != 7 || sess.Organisation != "acme" {
		t.Errorf("unexpected session %+v", sess)
	}
}

func TestValidate_Rejected_ClearsSession(t *testing.T) {
	api := newFakeAPI()
	api.validateOK = false
	m, st := newTestSessionManager(t, api)
	ctx := context.Background()
	seedSession(t, st, types.WorkerSession{WorkerID: 7, Organisation: "acme"})

	_, err := m.Validate(ctx)
	if !errors.Is(err, service.ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
	if _, err := st.Session(ctx); !errors.Is(err, store.ErrNoSession) {
		t.Error("rejected session must be cleared from the store")
	}
}

func TestValidate_ServerError_ClearsSession(t *testing.T) {
	api := newFakeAPI()
	api.validateErr = true
	m, st := newTestSessionManager(t, api)
	ctx := context.Background()
	seedSession(t, st, types.WorkerSession{WorkerID: 7, Organisation: "acme"})

	_, err := m.Validate(ctx)
	if !errors.Is(err, service.ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid on a server error, got %v", err)
	}
	if _, err := st.Session(ctx); !errors.Is(err, store.ErrNoSession) {
		t.Error("an unverifiable session must be cleared from the store")
	}
}

func TestLogin_PersistsSessionAndSendsDeviceID(t *testing.T) {
	api := newFakeAPI()
	api.byNameID = 42
	m, st := newTestSessionManager(t, api)
	ctx := context.Background()

	sess, err := m.Login(ctx, " acme ", " Vukašin Petrović ")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.WorkerID != 42 || sess.Organisation != "acme" {
		t.Errorf("unexpected session %+v", sess)
	}

	stored, err := st.Session(ctx)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if stored != sess {
		t.Errorf("stored session %+v differs from returned %+v", stored, sess)
	}

	q := api.query("/api/worker/by-name")
	if !strings.Contains(q, "device=") {
		t.Errorf("expected a device parameter in the lookup, got query %q", q)
	}
}

func TestLogin_DeviceIDStableAcrossLogins(t *testing.T) {
	api := newFakeAPI()
	api.byNameID = 42
	m, _ := newTestSessionManager(t, api)
	ctx := context.Background()

	if _, err := m.Login(ctx, "acme", "Vukašin"); err != nil {
		t.Fatalf("first login: %v", err)
	}
	first := api.query("/api/worker/by-name")

	if _, err := m.Login(ctx, "acme", "Vukašin"); err != nil {
		t.Fatalf("second login: %v", err)
	}
	second := api.query("/api/worker/by-name")

	if first != second {
		t.Errorf("device id changed between logins:\n%s\n%s", first, second)
	}
}

func TestLogin_UnknownName(t *testing.T) {
	api := newFakeAPI()
	api.byNameErr = "worker not found"
	m, st := newTestSessionManager(t, api)
	ctx := context.Background()

	if _, err := m.Login(ctx, "acme", "Nobody"); err == nil {
		t.Fatal("expected an error for an unknown name")
	}
	if _, err := st.Session(ctx); !errors.Is(err, store.ErrNoSession) {
		t.Error("a failed login must not persist a session")
	}
}

func TestLogin_MissingFields(t *testing.T) {
	api := newFakeAPI()
	m, _ := newTestSessionManager(t, api)
	ctx := context.Background()

	for _, tt := range []struct{ org, name string }{
		{"", "Vukašin"},
		{"acme", ""},
		{"  ", "  "},
	} {
		if _, err := m.Login(ctx, tt.org, tt.name); !errors.Is(err, service.ErrInvalidLogin) {
			t.Errorf("Login(%q, %q): expected ErrInvalidLogin, got %v", tt.org, tt.name, err)
		}
	}
	if api.totalCalls() != 0 {
		t.Error("invalid logins must not reach the server")
	}
}

func TestClear(t *testing.T) {
	api := newFakeAPI()
	m, st := newTestSessionManager(t, api)
	ctx := context.Background()
	seedSession(t, st, types.WorkerSession{WorkerID: 7, Organisation: "acme"})

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := st.Session(ctx); !errors.Is(err, store.ErrNoSession) {
		t.Error("expected the session gone after Clear")
	}
}
