// The checkin-agent is the headless attendance client: it keeps the worker's
// session valid, reports location fixes and nudges on geofence entry, mirrors
// the co-worker presence list, and runs QR check-in/check-out scans fed as
// lines on stdin (one decoded payload per line, e.g. piped from zbarcam).
package main

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/05vukasin/check-in/internal/checkin/service"
	"github.com/05vukasin/check-in/internal/checkin/store"
	storesqlite "github.com/05vukasin/check-in/internal/checkin/store/sqlite"
	"github.com/05vukasin/check-in/internal/checkin/types"
	"github.com/05vukasin/check-in/internal/config"
	"github.com/05vukasin/check-in/internal/db"
	"github.com/05vukasin/check-in/internal/location"
	"github.com/05vukasin/check-in/internal/logging"
	"github.com/05vukasin/check-in/internal/notify"
	"github.com/05vukasin/check-in/internal/remote"
)

func main() {
	cfg := config.MustLoad()
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath})
	if err != nil {
		logger.Error("can't open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer conn.Close()

	writer := db.NewWriter(conn)
	defer writer.Close()

	st := store.New(storesqlite.NewKeyStore(conn, writer))
	client := remote.NewClient(cfg.BaseURLTemplate)
	sessions := service.NewSessionManager(st, client, logger)

	sess, err := establishSession(ctx, cfg, sessions, logger)
	if err != nil {
		logger.Error("can't establish session", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var source location.Source
	if cfg.LocationCommand != "" {
		parts := strings.Fields(cfg.LocationCommand)
		source = location.ExecSource{Name: parts[0], Args: parts[1:]}
	} else {
		source = location.FixedSource{Lat: cfg.StaticLat, Lon: cfg.StaticLon}
	}

	sender := notify.NewNtfySender(cfg.NtfyServer, cfg.NtfyTopic)
	notifier := service.NewGeofenceNotifier(st, client, sender, logger, cfg.NotificationThrottle)
	reporter := service.NewReporter(source, notifier, logger)

	status := service.NewStatusWatcher(client, logger, func(checkedIn bool) {
		logger.Info("attendance status changed", slog.Bool("checkedIn", checkedIn))
	})

	presence := service.NewPresenceCache(st, client, logger, func(workers []types.WorkerPresence) {
		logger.Info("presence snapshot changed", slog.Int("workers", len(workers)))
	})

	workflow := service.NewScanWorkflow(service.ScanConfig{
		Client:    client,
		Source:    source,
		OnSuccess: status.Refresh,
		Logger:    logger,
		Cooldown:  cfg.ScanCooldown,
	})

	go reporter.Run(ctx, cfg.LocationInterval)
	go status.Run(ctx, sess, cfg.StatusInterval)
	go presence.Run(ctx, sess.Organisation, cfg.PresenceInterval)
	go scanLoop(ctx, workflow, sess, logger)

	logger.Info("checkin-agent started",
		slog.Int("workerId", sess.WorkerID),
		slog.String("organisation", sess.Organisation))

	<-ctx.Done()
	logger.Info("shutting down")
}

// establishSession validates the stored session, falling back to a fresh
// login with the configured credentials when validation rejects it.
func establishSession(ctx context.Context, cfg *config.Config, sessions *service.SessionManager, logger *slog.Logger) (types.WorkerSession, error) {
	sess, err := sessions.Validate(ctx)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, service.ErrNoSession) && !errors.Is(err, service.ErrSessionInvalid) {
		return types.WorkerSession{}, err
	}

	logger.Info("no valid session, logging in",
		slog.String("organisation", cfg.Organisation))
	return sessions.Login(ctx, cfg.Organisation, cfg.WorkerName)
}

// scanLoop feeds decoded QR payloads from stdin into the workflow.  Payloads
// arriving during an in-flight attempt are dropped, matching the scanner's
// debounce behaviour.
func scanLoop(ctx context.Context, workflow *service.ScanWorkflow, sess types.WorkerSession, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		res, err := workflow.HandleScan(ctx, sess, line)
		if errors.Is(err, service.ErrScanInFlight) {
			logger.Debug("scan dropped, attempt in flight")
			continue
		}
		if err != nil {
			logger.Warn("scan failed", slog.String("error", err.Error()))
			continue
		}

		logger.Info("scan result",
			slog.Bool("success", res.Success),
			slog.String("message", res.Message))
	}
}
