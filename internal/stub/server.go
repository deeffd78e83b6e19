// Package stub is a self-contained stand-in for the per-organisation
// attendance service.  It exists for local development of the agent and as
// the fixture behind the remote client's tests; it is not the production
// server.
package stub

import (
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// Worker is one seeded worker with its mutable attendance state.
type Worker struct {
	ID        int
	Name      string
	Lat       float64
	Lon       float64
	Online    bool
	CheckedIn bool
}

// Config seeds the stub.  The geofence is a plain radius around a centre
// point, which is all the real server exposes through /api/location/check.
type Config struct {
	Workers []Worker

	CentreLat    float64
	CentreLon    float64
	RadiusMetres float64

	Logger *slog.Logger
}

type Server struct {
	router *mux.Router
	logger *slog.Logger

	centreLat float64
	centreLon float64
	radius    float64

	mu      sync.Mutex
	workers map[int]*Worker
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:    logger,
		centreLat: cfg.CentreLat,
		centreLon: cfg.CentreLon,
		radius:    cfg.RadiusMetres,
		workers:   make(map[int]*Worker, len(cfg.Workers)),
	}
	for i := range cfg.Workers {
		w := cfg.Workers[i]
		s.workers[w.ID] = &w
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/worker/validate", s.handleValidate).Methods("GET")
	r.HandleFunc("/api/worker/by-name", s.handleByName).Methods("GET")
	r.HandleFunc("/api/worker/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/api/worker/online", s.handleOnline).Methods("GET")
	r.HandleFunc("/api/location/send", s.handleLocationSend).Methods("POST")
	r.HandleFunc("/api/location/check", s.handleLocationCheck).Methods("POST")
	r.HandleFunc("/api/worker/check-in", s.handleCheckIn).Methods("POST")
	r.HandleFunc("/api/worker/check-out", s.handleCheckOut).Methods("POST")
	r.Use(s.loggingMiddleware)

	s.router = r
	return s
}

// Handler returns the stub's HTTP handler, for httptest and for main.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("dur", time.Since(start)))
	})
}

// inFence reports whether the point lies within the configured radius of the
// centre, by haversine distance.
func (s *Server) inFence(lat, lon float64) bool {
	const earthRadiusM = 6371000.0

	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat - s.centreLat)
	dLon := toRad(lon - s.centreLon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(s.centreLat))*math.Cos(toRad(lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return d <= s.radius
}
