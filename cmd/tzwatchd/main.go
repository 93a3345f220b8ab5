package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/dmdmdm-nz/tzwatchd/internal/bridge"
	"github.com/dmdmdm-nz/tzwatchd/internal/fetch"
	"github.com/dmdmdm-nz/tzwatchd/internal/runtime"
	"github.com/dmdmdm-nz/tzwatchd/internal/tz"
	"github.com/dmdmdm-nz/tzwatchd/internal/tzmon"
	"github.com/dmdmdm-nz/tzwatchd/internal/watcher"
	"github.com/dmdmdm-nz/tzwatchd/pkg/cli"
)

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	// Parse command line flags
	cfg := cli.ParseFlags()

	// Configure logging
	setLogLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})

	log.Infof("Config: %s", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer cancel()

	source := tz.NewSystemSource(cfg.Localtime, cfg.TimezoneFile)
	w := watcher.New(source)

	hub := bridge.NewHub(bridge.Notification{
		Title: cfg.NotificationTitle,
		Body:  cfg.NotificationBody,
	})

	// The hub is the single listener; it fans out to bridge clients.
	if err := w.Start(hub.Publish); err != nil {
		log.WithError(err).Warn("Starting without a timezone baseline")
	} else if id, ok := w.LastKnown(); ok {
		log.WithField("timezone", id).Info("Watching system timezone")
	}
	defer w.Stop()

	monSvc := tzmon.NewService(w, cfg.ReconcileInterval,
		tzmon.NewFileNotifier(source.WatchedPaths(), cfg.Debounce),
		tzmon.NewSignalNotifier(),
	)
	fetchSvc := fetch.NewScheduler(w, cfg.FetchInterval)

	bridgeSvc := bridge.NewService(cfg.Host, cfg.Port, cfg.Advertise, hub)
	bridgeSvc.AttachWatcher(w)
	bridgeSvc.AttachFetch(fetchSvc)

	// Start in dependency order: tzmon → fetch → bridge
	super := runtime.NewSupervisor()
	super.Add("tzmon", stopOnError(monSvc.Start, cancel), monSvc.Close)
	super.Add("fetch", stopOnError(fetchSvc.Start, cancel), fetchSvc.Close)
	super.Add("bridge", stopOnError(bridgeSvc.Start, cancel), bridgeSvc.Close)

	if err := super.Start(ctx); err != nil {
		log.WithError(err).Error("Supervisor start failed")
		os.Exit(1)
	}
	if err := super.Wait(ctx); err != nil {
		log.WithError(err).Error("Supervisor wait failed")
		os.Exit(1)
	}
}

// stopOnError shuts the daemon down when a worker fails, e.g. the bridge
// port is taken.
func stopOnError(run func(context.Context) error, cancel context.CancelFunc) func(context.Context) error {
	return func(ctx context.Context) error {
		err := run(ctx)
		if err != nil {
			cancel()
		}
		return err
	}
}

func setLogLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
