package notify_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/05vukasin/check-in/internal/notify"
)

type capturedRequest struct {
	path     string
	body     string
	title    string
	tags     string
	priority string
}

func startNtfy(t *testing.T, status int) (*notify.NtfySender, *capturedRequest) {
	t.Helper()

	var captured capturedRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = capturedRequest{
			path:     r.URL.Path,
			body:     string(body),
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)

	return notify.NewNtfySender(ts.URL, "checkin-test"), &captured
}

func TestNtfySender_Send(t *testing.T) {
	sender, captured := startNtfy(t, http.StatusOK)

	err := sender.Send(context.Background(), notify.Notification{
		Title: "Blizu ste posla",
		Body:  "Prijavite se na posao jednim klikom.",
		Data:  map[string]string{"screen": "QR", "a": "b"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if captured.path != "/checkin-test" {
		t.Errorf("published to %q, want /checkin-test", captured.path)
	}
	if captured.title != "Blizu ste posla" {
		t.Errorf("title %q", captured.title)
	}
	if captured.body != "Prijavite se na posao jednim klikom." {
		t.Errorf("body %q", captured.body)
	}
	if captured.tags != "a=b,screen=QR" {
		t.Errorf("tags %q, want sorted key=value pairs", captured.tags)
	}
	if captured.priority != "3" {
		t.Errorf("priority %q, want 3", captured.priority)
	}
}

func TestNtfySender_ServerError(t *testing.T) {
	sender, _ := startNtfy(t, http.StatusTooManyRequests)

	err := sender.Send(context.Background(), notify.Notification{Body: "x"})
	if err == nil {
		t.Fatal("expected an error on a non-2xx response")
	}
}
