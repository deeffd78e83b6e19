// Package remote is the HTTP client for the per-organisation attendance
// service.  Every organisation gets its own deployment, so the base URL is
// derived from the organisation name through a configurable template.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/05vukasin/check-in/internal/checkin/types"
)

// DefaultBaseURLTemplate matches the production deployments: one Vercel app
// per organisation.
const DefaultBaseURLTemplate = "https://%s.vercel.app"

const requestTimeout = 10 * time.Second

// maxResponseBody caps how much of any response we are willing to read.  The
// largest expected payload (the online-worker list) is a few KiB.
const maxResponseBody = 1 << 20

type Client struct {
	httpClient  *http.Client
	baseURLTmpl string
}

func NewClient(baseURLTemplate string) *Client {
	if baseURLTemplate == "" {
		baseURLTemplate = DefaultBaseURLTemplate
	}
	return &Client{
		httpClient:  &http.Client{Timeout: requestTimeout},
		baseURLTmpl: baseURLTemplate,
	}
}

// baseURL resolves the organisation's deployment URL.  A template without a
// %s verb is used verbatim, which is how tests point the client at a local
// httptest server.
func (c *Client) baseURL(org string) string {
	if strings.Contains(c.baseURLTmpl, "%s") {
		return fmt.Sprintf(c.baseURLTmpl, org)
	}
	return c.baseURLTmpl
}

// ── Worker endpoints ─────────────────────────────────────────────────────────

// ValidateWorker asks the server whether the stored worker id is still
// accepted.
func (c *Client) ValidateWorker(ctx context.Context, org string, workerID int) (bool, error) {
	q := url.Values{"id": {strconv.Itoa(workerID)}}
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.getJSON(ctx, org, "/api/worker/validate", q, &resp); err != nil {
		return false, err
	}
	return resp.OK, nil
}

// WorkerByName resolves a worker id from the worker's name and the device
// identifier, the login flow of the client.
func (c *Client) WorkerByName(ctx context.Context, org, name, device string) (int, error) {
	q := url.Values{"name": {name}, "device": {device}}
	var resp struct {
		ID    int    `json:"id"`
		Error string `json:"error"`
	}
	if err := c.getJSON(ctx, org, "/api/worker/by-name", q, &resp); err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("worker lookup rejected: %s", resp.Error)
	}
	if resp.ID == 0 {
		return 0, fmt.Errorf("worker lookup returned no id")
	}
	return resp.ID, nil
}

// WorkerStatus reports whether the worker is currently checked in.
func (c *Client) WorkerStatus(ctx context.Context, org string, workerID int) (bool, error) {
	q := url.Values{"id": {strconv.Itoa(workerID)}}
	var resp struct {
		InOut bool `json:"in_out"`
	}
	if err := c.getJSON(ctx, org, "/api/worker/status", q, &resp); err != nil {
		return false, err
	}
	return resp.InOut, nil
}

// OnlineWorkers returns the organisation's online-worker list with each
// worker's last reported coordinates.
func (c *Client) OnlineWorkers(ctx context.Context, org string) ([]types.WorkerPresence, error) {
	var workers []types.WorkerPresence
	if err := c.getJSON(ctx, org, "/api/worker/online", nil, &workers); err != nil {
		return nil, err
	}
	return workers, nil
}

// ── Location endpoints ───────────────────────────────────────────────────────

type locationReport struct {
	WorkerID int     `json:"workerId"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// SendLocation reports the worker's current coordinates.  Fire-and-forget
// from the caller's point of view; the server's response body is ignored.
func (c *Client) SendLocation(ctx context.Context, org string, workerID int, fix types.LocationFix) error {
	body := locationReport{WorkerID: workerID, Lat: fix.Latitude, Lon: fix.Longitude}
	return c.postJSON(ctx, org, "/api/location/send", body, nil)
}

// CheckLocation asks the server whether the coordinates fall inside the work
// geofence.  The radius lives server-side; the client only sees the verdict.
func (c *Client) CheckLocation(ctx context.Context, org string, fix types.LocationFix) (bool, error) {
	body := struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}{Lat: fix.Latitude, Lon: fix.Longitude}

	var resp struct {
		Allowed bool `json:"allowed"`
	}
	if err := c.postJSON(ctx, org, "/api/location/check", body, &resp); err != nil {
		return false, err
	}
	return resp.Allowed, nil
}

// ── Attendance mutations ─────────────────────────────────────────────────────

type attendanceMutation struct {
	Token    string         `json:"token"`
	Type     types.ScanType `json:"type"`
	WorkerID int            `json:"workerId"`
}

func (c *Client) CheckIn(ctx context.Context, org, token string, workerID int) error {
	body := attendanceMutation{Token: token, Type: types.ScanEntry, WorkerID: workerID}
	return c.postJSON(ctx, org, "/api/worker/check-in", body, nil)
}

func (c *Client) CheckOut(ctx context.Context, org, token string, workerID int) error {
	body := attendanceMutation{Token: token, Type: types.ScanExit, WorkerID: workerID}
	return c.postJSON(ctx, org, "/api/worker/check-out", body, nil)
}

// ── Transport helpers ────────────────────────────────────────────────────────

func (c *Client) getJSON(ctx context.Context, org, path string, query url.Values, out any) error {
	u := c.baseURL(org) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	return c.do(req, path, out)
}

func (c *Client) postJSON(ctx context.Context, org, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL(org)+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: server returned %s", path, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}
