// The attendance-stub serves a throwaway in-memory rendition of the
// per-organisation attendance API, for developing the agent without a real
// deployment.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/05vukasin/check-in/internal/logging"
	"github.com/05vukasin/check-in/internal/stub"
)

func main() {
	var (
		addr     = flag.String("addr", ":8090", "listen address")
		lat      = flag.Float64("lat", 44.8125, "geofence centre latitude")
		lon      = flag.Float64("lon", 20.4612, "geofence centre longitude")
		radius   = flag.Float64("radius", 300, "geofence radius in metres")
		logLevel = flag.String("log-level", "debug", "log level")
	)
	flag.Parse()

	logger := logging.Setup(*logLevel)

	srv := stub.NewServer(stub.Config{
		Workers: []stub.Worker{
			{ID: 1, Name: "Vukašin Petrović", Lat: *lat, Lon: *lon, Online: true},
			{ID: 2, Name: "Milica Jovanović", Lat: *lat + 0.001, Lon: *lon - 0.001, Online: true},
			{ID: 3, Name: "Nikola Ilić"},
		},
		CentreLat:    *lat,
		CentreLon:    *lon,
		RadiusMetres: *radius,
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("attendance-stub listening", slog.String("addr", *addr))
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
