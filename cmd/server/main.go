package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"weather_alerts/internal/config"
	"weather_alerts/internal/dispatch"
	"weather_alerts/internal/observability"
	"weather_alerts/internal/sms"
	"weather_alerts/internal/storage"
	"weather_alerts/internal/weather"
	"weather_alerts/internal/web"
)

func main() {
	// .env is optional; real deployments configure the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if cfg.BaseURLIsLoopback() {
		log.Warn("BASE_URL resolves to a loopback host; unsubscribe links will not work for subscribers", "base_url", cfg.BaseURL)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	owClient := weather.New(http.DefaultClient, cfg.OpenWeatherAPIKey)
	sender := sms.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	metrics := observability.NewMetrics()
	engine := dispatch.New(store, owClient, sender, metrics, log)

	tzResolver, err := web.NewTZFResolver()
	if err != nil {
		log.Error("create timezone resolver", "error", err)
		os.Exit(1)
	}

	srv := web.NewServer(store, owClient, owClient, tzResolver, engine, cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := cron.New()
	_, err = sched.AddFunc(cfg.DispatchCron, func() {
		// Re-read configuration per run so window and length settings are
		// never stale in a long-lived process.
		runCfg, err := config.Load()
		if err != nil {
			log.Error("reload config for scheduled run", "error", err)
			return
		}
		if _, err := engine.Run(ctx, runCfg, 0); err != nil {
			log.Error("scheduled dispatch run", "error", err)
		}
	})
	if err != nil {
		log.Error("schedule dispatch job", "cron", cfg.DispatchCron, "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	log.Info("stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
