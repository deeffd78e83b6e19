package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/05vukasin/check-in/internal/checkin/service"
)

func collectStatusChanges(t *testing.T, api *fakeAPI) (chan bool, context.CancelFunc) {
	t.Helper()

	changes := make(chan bool, 16)
	sw := service.NewStatusWatcher(api.start(t), silentLogger(), func(checkedIn bool) {
		changes <- checkedIn
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sw.Run(ctx, testSession, 10*time.Millisecond)
	return changes, cancel
}

func waitForChange(t *testing.T, changes chan bool, want bool) {
	t.Helper()
	select {
	case got := <-changes:
		if got != want {
			t.Fatalf("status change: got %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no status change published, wanted %v", want)
	}
}

func TestStatusWatcher_PublishesInitialAndChangesOnly(t *testing.T) {
	api := newFakeAPI()
	api.setInOut(false)
	changes, _ := collectStatusChanges(t, api)

	// First poll always publishes.
	waitForChange(t, changes, false)

	// A stable value stays quiet across further polls.
	time.Sleep(50 * time.Millisecond)
	select {
	case got := <-changes:
		t.Fatalf("unexpected publish of unchanged status %v", got)
	default:
	}

	// A flip publishes exactly the new value.
	api.setInOut(true)
	waitForChange(t, changes, true)
}

func TestStatusWatcher_RefreshPokesImmediatePoll(t *testing.T) {
	api := newFakeAPI()
	api.setInOut(false)

	changes := make(chan bool, 16)
	sw := service.NewStatusWatcher(api.start(t), silentLogger(), func(checkedIn bool) {
		changes <- checkedIn
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sw.Run(ctx, testSession, time.Hour)

	waitForChange(t, changes, false)

	// With an hour-long ticker, only the poke can surface the flip.
	api.setInOut(true)
	sw.Refresh()
	waitForChange(t, changes, true)
}

func TestStatusWatcher_StopsOnCancel(t *testing.T) {
	api := newFakeAPI()
	sw := service.NewStatusWatcher(api.start(t), silentLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx, testSession, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
