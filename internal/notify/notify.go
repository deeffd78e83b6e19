// Package notify delivers local notifications to the worker's device.  The
// agent pushes through ntfy, which the companion mobile app subscribes to.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Notification is a fire-once message.  Data carries opaque hints for the
// subscribing app (e.g. which screen to open).
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sender schedules one local notification.  Implementations must not retry;
// throttling and retry cadence are owned by the caller.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

const DefaultNtfyServer = "https://ntfy.sh"

// NtfySender publishes notifications to an ntfy topic over plain HTTP.
type NtfySender struct {
	Server string
	Topic  string

	httpClient *http.Client
}

func NewNtfySender(server, topic string) *NtfySender {
	if server == "" {
		server = DefaultNtfyServer
	}
	return &NtfySender{
		Server:     server,
		Topic:      topic,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *NtfySender) Send(ctx context.Context, n Notification) error {
	u := strings.TrimRight(s.Server, "/") + "/" + s.Topic

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(n.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}

	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Priority", "3")
	if n.Title != "" {
		req.Header.Set("Title", n.Title)
	}
	if len(n.Data) > 0 {
		req.Header.Set("Tags", encodeData(n.Data))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// encodeData flattens the data payload into ntfy tags (key=value, sorted for
// a stable wire form).
func encodeData(data map[string]string) string {
	pairs := make([]string, 0, len(data))
	for k, v := range data {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
