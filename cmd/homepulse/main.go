package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/homepulse/homepulse/internal/api"
	"github.com/homepulse/homepulse/internal/collector"
	"github.com/homepulse/homepulse/internal/config"
	"github.com/homepulse/homepulse/internal/insights"
	"github.com/homepulse/homepulse/internal/monitor"
	"github.com/homepulse/homepulse/internal/notify"
	"github.com/homepulse/homepulse/internal/store"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// buildInfo returns version, commit, build time, and VCS details from the
// embedded Go build info. ldflags-injected values take priority; VCS info
// from debug.ReadBuildInfo fills in anything left as default.
func buildInfo() (ver, sha, built, dirty string) {
	ver = version
	sha = commit
	built = buildTime
	dirty = "clean"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if sha == "none" {
				sha = s.Value
			}
		case "vcs.time":
			if built == "unknown" {
				built = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "dirty"
			}
		}
	}

	return
}

func main() {
	configPath := flag.String("config", "", "path to homepulse.yml config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	ver, sha, built, dirty := buildInfo()

	if *showVersion {
		fmt.Printf("homepulse %s\n  commit:    %s (%s)\n  built:     %s\n  go:        %s\n  platform:  %s/%s\n",
			ver, sha, dirty, built, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigFileNotFound) {
			fmt.Fprintf(os.Stderr, "error: %s\n\n", err)
			fmt.Fprintf(os.Stderr, "Copy the example config to get started:\n")
			fmt.Fprintf(os.Stderr, "  cp homepulse.example.yml %s\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "error: loading config (%s): %s\n", *configPath, err)
		}
		os.Exit(1)
	}

	// Configure logging
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting homepulse",
		"version", ver,
		"commit", sha,
		"built", built,
		"dirty", dirty,
		"go", runtime.Version(),
		"listen", cfg.Listen,
	)

	st, err := store.New(cfg.DBPath)
	if err != nil {
		slog.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	policy := insights.DefaultPolicy()
	policy.PricePerKWh = cfg.Pricing.PricePerKWh
	policy.BaseWatts = cfg.Pricing.BaseWatts
	policy.WattsPerTB = cfg.Pricing.WattsPerTB
	policy.WattsPerContainer = cfg.Pricing.WattsPerContainer
	analyzer := insights.New(st, policy)

	// Setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Optional SSH SMART collector
	if cfg.SMART != nil {
		pool := collector.NewWorkerPool(4)
		smartCollector, err := collector.NewSMARTCollector(collector.SSHConfig{
			Host:    cfg.SMART.Host,
			User:    cfg.SMART.User,
			KeyPath: cfg.SMART.KeyPath,
		}, cfg.SMART.Devices, st, pool, cfg.SMART.PollInterval.Duration)
		if err != nil {
			slog.Error("failed to create SMART collector", "host", cfg.SMART.Host, "error", err)
		} else {
			g.Go(func() error { return collector.Run(ctx, smartCollector) })
		}
	}

	// Start pruner
	pruner := store.NewPruner(st, store.DefaultRetention())
	g.Go(func() error { return pruner.Run(ctx) })

	// Build notification providers
	var providers []notify.Provider
	for _, ncfg := range cfg.Notifications {
		switch ncfg.Type {
		case "ntfy":
			providers = append(providers, notify.NewNtfy(ncfg.URL, ncfg.Topic))
		case "webhook":
			providers = append(providers, notify.NewWebhook(ncfg.URL, ncfg.Method, ncfg.Headers))
		}
	}

	// Start the analysis monitor
	mon := monitor.New(analyzer, st, providers, monitor.Config{
		Interval:      cfg.Analysis.Interval.Duration,
		LookbackHours: cfg.Analysis.LookbackHours,
		Cooldown:      cfg.Analysis.Cooldown.Duration,
	})
	g.Go(func() error { return mon.Run(ctx) })

	// Start HTTP server
	server := api.NewServer(cfg.Listen, st, analyzer)
	g.Go(func() error { return server.Run(ctx) })

	slog.Info("all components started",
		"smart_collector", cfg.SMART != nil,
		"notifications", len(providers),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal error", "error", err)
	}

	slog.Info("homepulse stopped gracefully")
}
