package types

import "time"

// WorkerSession identifies the logged-in worker and the organisation whose
// attendance server the client talks to.  Exactly one session is active at
// a time; its absence is a normal state and forces a login.
type WorkerSession struct {
	WorkerID     int
	Organisation string
}

// LocationFix is a single device position as delivered by a location source.
// Fixes are ephemeral: they are consumed once and never persisted.
type LocationFix struct {
	Latitude   float64
	Longitude  float64
	CapturedAt time.Time
}

// WorkerPresence is one entry of the online-worker list served by the
// attendance API.  A slice of these forms a presence snapshot; entries have
// no stable identity beyond their list position.
type WorkerPresence struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// ScanType distinguishes check-in from check-out codes.
type ScanType string

const (
	ScanEntry ScanType = "entry"
	ScanExit  ScanType = "exit"
)

// ScanAttempt is the decoded content of one QR scan.  It lives for a single
// pass through the scan workflow and is discarded afterwards.
type ScanAttempt struct {
	Token string
	Type  ScanType
}
