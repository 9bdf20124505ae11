// Command send-alerts performs a single dispatch pass and prints the run
// statistics. Intended for cron-style external schedulers and manual runs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"weather_alerts/internal/config"
	"weather_alerts/internal/dispatch"
	"weather_alerts/internal/observability"
	"weather_alerts/internal/sms"
	"weather_alerts/internal/storage"
	"weather_alerts/internal/weather"
)

func main() {
	limit := flag.Int("limit", 0, "check only the first N subscribers (0 = all)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	owClient := weather.New(http.DefaultClient, cfg.OpenWeatherAPIKey)
	sender := sms.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	engine := dispatch.New(store, owClient, sender, observability.NewMetrics(), log)

	report, err := engine.Run(context.Background(), cfg, *limit)
	if err != nil {
		log.Error("dispatch run", "error", err)
		os.Exit(1)
	}

	out, _ := json.Marshal(report.Stats)
	fmt.Println(string(out))
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
