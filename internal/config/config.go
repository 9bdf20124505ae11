// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	LogLevel     string
	HTTPAddr     string
	BaseURL      string
	AdminToken   string

	OpenWeatherAPIKey string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	SendWindowMinutes    int
	DailySendHourLocal   int
	MaxSMSLen            int
	ForceSendAlert       bool
	ForecastHorizonHours int
	DispatchWorkers      int
	DispatchCron         string
}

// Load reads configuration from environment variables.
// Missing delivery or forecast credentials are a hard error: the dispatcher
// must never run without them and silently send nothing.
func Load() (*Config, error) {
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY is required")
	}

	sid := os.Getenv("TWILIO_ACCOUNT_SID")
	token := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_FROM_NUMBER")
	if sid == "" || token == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio configuration (TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN / TWILIO_FROM_NUMBER)")
	}

	cfg := &Config{
		DatabasePath:      envOrDefault("DATABASE_PATH", "./data/alerts.db"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		HTTPAddr:          envOrDefault("HTTP_ADDR", ":8080"),
		BaseURL:           envOrDefault("BASE_URL", "http://127.0.0.1:8080"),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		OpenWeatherAPIKey: apiKey,
		TwilioAccountSID:  sid,
		TwilioAuthToken:   token,
		TwilioFromNumber:  from,
		DispatchCron:      envOrDefault("DISPATCH_CRON", "*/5 * * * *"),
	}

	var err error
	if cfg.SendWindowMinutes, err = envInt("SEND_WINDOW_MINUTES", 15); err != nil {
		return nil, err
	}
	if cfg.SendWindowMinutes < 1 || cfg.SendWindowMinutes > 60 {
		return nil, fmt.Errorf("SEND_WINDOW_MINUTES must be between 1 and 60")
	}
	if cfg.DailySendHourLocal, err = envInt("DAILY_SEND_HOUR_LOCAL", 6); err != nil {
		return nil, err
	}
	if cfg.DailySendHourLocal < 0 || cfg.DailySendHourLocal > 23 {
		return nil, fmt.Errorf("DAILY_SEND_HOUR_LOCAL must be between 0 and 23")
	}
	if cfg.MaxSMSLen, err = envInt("MAX_SMS_LEN", 160); err != nil {
		return nil, err
	}
	if cfg.MaxSMSLen < 10 {
		return nil, fmt.Errorf("MAX_SMS_LEN must be at least 10")
	}
	if cfg.ForecastHorizonHours, err = envInt("FORECAST_HORIZON_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.ForecastHorizonHours < 1 {
		return nil, fmt.Errorf("FORECAST_HORIZON_HOURS must be at least 1")
	}
	if cfg.DispatchWorkers, err = envInt("DISPATCH_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.DispatchWorkers < 1 {
		return nil, fmt.Errorf("DISPATCH_WORKERS must be at least 1")
	}

	cfg.ForceSendAlert = os.Getenv("FORCE_SEND_ALERT") == "true"

	return cfg, nil
}

// BaseURLIsLoopback reports whether BASE_URL points at a loopback or local
// host, which would produce unsubscribe links unreachable by subscribers.
func (c *Config) BaseURLIsLoopback() bool {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "0.0.0.0"
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}
