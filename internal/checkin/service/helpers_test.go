package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/05vukasin/check-in/internal/checkin/store"
	"github.com/05vukasin/check-in/internal/checkin/store/memory"
	"github.com/05vukasin/check-in/internal/checkin/types"
	"github.com/05vukasin/check-in/internal/notify"
	"github.com/05vukasin/check-in/internal/remote"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAPI is a scriptable attendance server.  Zero status fields mean 200;
// raw body overrides win over the structured fields.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	validateOK  bool
	validateErr bool
	byNameID    int
	byNameErr   string
	inOut       bool

	online       []types.WorkerPresence
	onlineRaw    string
	onlineStatus int

	sendStatus int

	allowed     bool
	checkRaw    string
	checkStatus int

	checkInStatus  int
	checkOutStatus int

	// lastQuery remembers the most recent query string per path.
	lastQuery map[string]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:     make(map[string]int),
		lastQuery: make(map[string]string),
	}
}

// start serves the fake and returns a remote client pointed at it.
func (f *fakeAPI) start(t *testing.T) *remote.Client {
	t.Helper()
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)
	return remote.NewClient(ts.URL)
}

// setInOut flips the scripted status under the lock, for tests that poll
// concurrently.
func (f *fakeAPI) setInOut(v bool) {
	f.mu.Lock()
	f.inOut = v
	f.mu.Unlock()
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.lastQuery[r.URL.Path] = r.URL.RawQuery
	inOut := f.inOut
	f.mu.Unlock()

	switch r.URL.Path {
	case "/api/worker/validate":
		if f.validateErr {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, 0, map[string]bool{"ok": f.validateOK})
	case "/api/worker/by-name":
		if f.byNameErr != "" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": f.byNameErr})
			return
		}
		writeJSON(w, 0, map[string]int{"id": f.byNameID})
	case "/api/worker/status":
		writeJSON(w, 0, map[string]bool{"in_out": inOut})
	case "/api/worker/online":
		if f.onlineStatus != 0 {
			w.WriteHeader(f.onlineStatus)
			return
		}
		if f.onlineRaw != "" {
			_, _ = w.Write([]byte(f.onlineRaw))
			return
		}
		writeJSON(w, 0, f.online)
	case "/api/location/send":
		if f.sendStatus != 0 {
			w.WriteHeader(f.sendStatus)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "/api/location/check":
		if f.checkStatus != 0 {
			w.WriteHeader(f.checkStatus)
			return
		}
		if f.checkRaw != "" {
			_, _ = w.Write([]byte(f.checkRaw))
			return
		}
		writeJSON(w, 0, map[string]bool{"allowed": f.allowed})
	case "/api/worker/check-in":
		status := f.checkInStatus
		if status == 0 {
			status = http.StatusOK
		}
		writeJSON(w, status, map[string]bool{"ok": status < 300})
	case "/api/worker/check-out":
		status := f.checkOutStatus
		if status == 0 {
			status = http.StatusOK
		}
		writeJSON(w, status, map[string]bool{"ok": status < 300})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeAPI) query(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery[path]
}

func (f *fakeAPI) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// countingKV wraps the in-memory KeyStore and counts writes per key, so
// tests can assert that an unchanged snapshot produced no persistence
// traffic.
type countingKV struct {
	*memory.KeyStore

	mu   sync.Mutex
	sets map[string]int
}

func newCountingKV() *countingKV {
	return &countingKV{
		KeyStore: memory.New(),
		sets:     make(map[string]int),
	}
}

func (c *countingKV) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.sets[key]++
	c.mu.Unlock()
	return c.KeyStore.Set(ctx, key, value)
}

func (c *countingKV) setCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[key]
}

// fakeSender records notifications instead of delivering them.
type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Notification
	fail bool
}

func (s *fakeSender) Send(_ context.Context, n notify.Notification) error {
	if s.fail {
		return errSendFailed
	}
	s.mu.Lock()
	s.sent = append(s.sent, n)
	s.mu.Unlock()
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

var errSendFailed = errors.New("send failed")

// fakeSource returns a canned fix or error.
type fakeSource struct {
	fix types.LocationFix
	err error
}

func (s fakeSource) Current(_ context.Context) (types.LocationFix, error) {
	return s.fix, s.err
}

// seedSession writes a session straight into the store.
func seedSession(t *testing.T, st *store.Store, sess types.WorkerSession) {
	t.Helper()
	if err := st.SetSession(context.Background(), sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}
