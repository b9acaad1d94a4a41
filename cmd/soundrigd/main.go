package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/soundrig/internal/api"
	"github.com/gyaneshwarpardhi/soundrig/internal/config"
	"github.com/gyaneshwarpardhi/soundrig/internal/engine"
	"github.com/gyaneshwarpardhi/soundrig/internal/runtime"
	"github.com/gyaneshwarpardhi/soundrig/internal/settings"
	"github.com/gyaneshwarpardhi/soundrig/internal/settings/sqlite"
	"github.com/gyaneshwarpardhi/soundrig/internal/trigger"
)

func main() {
	var env config.DaemonEnv
	if err := config.ParseEnv(&env); err != nil {
		slog.Error("failed to read environment", "err", err)
		os.Exit(1)
	}
	addr := flag.String("addr", env.Addr, "HTTP listen address")
	cfgPath := flag.String("config", env.ConfigPath, "Path to rig YAML config")
	settingsDB := flag.String("settings-db", env.SettingsDB, "SQLite file for persistent settings (empty keeps them in memory)")
	watch := flag.Bool("watch", env.Watch, "Hot-reload triggers when the config file changes")
	flag.Parse()

	setupLogging(env.LogLevel, "")

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if env.LogLevel == "" {
		setupLogging("", cfg.Engine.LogLevel)
	}

	// ── Build initial trigger graph ──────────────────────────────────────────
	g, err := trigger.Build(cfg)
	if err != nil {
		slog.Error("failed to build triggers", "err", err)
		os.Exit(1)
	}
	slog.Info("triggers built", "triggers", g.Len(), "custom_events", len(g.ReceivedEvents()))

	// ── Persistent settings ──────────────────────────────────────────────────
	var store settings.Store = settings.NewMemory()
	if *settingsDB != "" {
		db, err := sqlite.Open(*settingsDB)
		if err != nil {
			slog.Error("failed to open settings store", "path", *settingsDB, "err", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db
	}

	// ── Runtime + engine ─────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := runtime.New(cfg, g, runtime.Options{Store: store, Seed: cfg.Engine.Seed})
	if err != nil {
		slog.Error("failed to build runtime", "err", err)
		os.Exit(1)
	}
	if err := rt.Start(ctx); err != nil {
		slog.Error("failed to start runtime", "err", err)
		os.Exit(1)
	}
	eng := engine.New(ctx, rt, cfg.Engine)

	// ── HTTP server (registers the reload hook) ──────────────────────────────
	handler := api.New(eng, loader)

	if *watch {
		stopWatch, err := loader.Watch()
		if err != nil {
			slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr, "tick_hz", cfg.Engine.TickHz)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	eng.Shutdown()
	slog.Info("goodbye")
}

// setupLogging installs the default text logger. The environment level wins
// over the config level.
func setupLogging(envLevel, cfgLevel string) {
	level := slog.LevelInfo
	name := envLevel
	if name == "" {
		name = cfgLevel
	}
	switch strings.ToLower(name) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
