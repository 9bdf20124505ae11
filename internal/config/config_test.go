package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var configKeys = []string{
	"DATABASE_PATH", "LOG_LEVEL", "HTTP_ADDR", "BASE_URL", "ADMIN_TOKEN",
	"OPENWEATHER_API_KEY", "TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER",
	"SEND_WINDOW_MINUTES", "DAILY_SEND_HOUR_LOCAL", "MAX_SMS_LEN", "FORCE_SEND_ALERT",
	"FORECAST_HORIZON_HOURS", "DISPATCH_WORKERS", "DISPATCH_CRON",
}

func requiredEnv() map[string]string {
	return map[string]string{
		"OPENWEATHER_API_KEY": "ow-key",
		"TWILIO_ACCOUNT_SID":  "AC123",
		"TWILIO_AUTH_TOKEN":   "tok",
		"TWILIO_FROM_NUMBER":  "+15550001111",
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing weather api key",
			env:     map[string]string{"TWILIO_ACCOUNT_SID": "AC1", "TWILIO_AUTH_TOKEN": "t", "TWILIO_FROM_NUMBER": "+1"},
			wantErr: true,
		},
		{
			name:    "missing twilio credentials",
			env:     map[string]string{"OPENWEATHER_API_KEY": "ow-key"},
			wantErr: true,
		},
		{
			name:    "partial twilio credentials",
			env:     map[string]string{"OPENWEATHER_API_KEY": "ow-key", "TWILIO_ACCOUNT_SID": "AC1"},
			wantErr: true,
		},
		{
			name: "required only, defaults applied",
			env:  requiredEnv(),
			want: &Config{
				DatabasePath:         "./data/alerts.db",
				LogLevel:             "info",
				HTTPAddr:             ":8080",
				BaseURL:              "http://127.0.0.1:8080",
				OpenWeatherAPIKey:    "ow-key",
				TwilioAccountSID:     "AC123",
				TwilioAuthToken:      "tok",
				TwilioFromNumber:     "+15550001111",
				SendWindowMinutes:    15,
				DailySendHourLocal:   6,
				MaxSMSLen:            160,
				ForecastHorizonHours: 24,
				DispatchWorkers:      4,
				DispatchCron:         "*/5 * * * *",
			},
		},
		{
			name: "all values set",
			env: merge(requiredEnv(), map[string]string{
				"DATABASE_PATH":          "/tmp/alerts.db",
				"LOG_LEVEL":              "debug",
				"HTTP_ADDR":              ":9090",
				"BASE_URL":               "https://alerts.example.com",
				"ADMIN_TOKEN":            "secret",
				"SEND_WINDOW_MINUTES":    "30",
				"DAILY_SEND_HOUR_LOCAL":  "7",
				"MAX_SMS_LEN":            "140",
				"FORCE_SEND_ALERT":       "true",
				"FORECAST_HORIZON_HOURS": "12",
				"DISPATCH_WORKERS":       "8",
				"DISPATCH_CRON":          "* * * * *",
			}),
			want: &Config{
				DatabasePath:         "/tmp/alerts.db",
				LogLevel:             "debug",
				HTTPAddr:             ":9090",
				BaseURL:              "https://alerts.example.com",
				AdminToken:           "secret",
				OpenWeatherAPIKey:    "ow-key",
				TwilioAccountSID:     "AC123",
				TwilioAuthToken:      "tok",
				TwilioFromNumber:     "+15550001111",
				SendWindowMinutes:    30,
				DailySendHourLocal:   7,
				MaxSMSLen:            140,
				ForceSendAlert:       true,
				ForecastHorizonHours: 12,
				DispatchWorkers:      8,
				DispatchCron:         "* * * * *",
			},
		},
		{
			name:    "invalid window minutes",
			env:     merge(requiredEnv(), map[string]string{"SEND_WINDOW_MINUTES": "abc"}),
			wantErr: true,
		},
		{
			name:    "window minutes out of range",
			env:     merge(requiredEnv(), map[string]string{"SEND_WINDOW_MINUTES": "90"}),
			wantErr: true,
		},
		{
			name:    "send hour out of range",
			env:     merge(requiredEnv(), map[string]string{"DAILY_SEND_HOUR_LOCAL": "24"}),
			wantErr: true,
		},
		{
			name:    "sms length too small",
			env:     merge(requiredEnv(), map[string]string{"MAX_SMS_LEN": "5"}),
			wantErr: true,
		},
		{
			name:    "zero workers rejected",
			env:     merge(requiredEnv(), map[string]string{"DISPATCH_WORKERS": "0"}),
			wantErr: true,
		},
		{
			name:    "zero forecast horizon rejected",
			env:     merge(requiredEnv(), map[string]string{"FORECAST_HORIZON_HOURS": "0"}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range configKeys {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBaseURLIsLoopback(t *testing.T) {
	tests := []struct {
		baseURL string
		want    bool
	}{
		{"http://127.0.0.1:8080", true},
		{"http://localhost:5000", true},
		{"http://[::1]:8080", true},
		{"https://alerts.example.com", false},
		{"https://192.168.1.20", false},
	}
	for _, tt := range tests {
		t.Run(tt.baseURL, func(t *testing.T) {
			cfg := &Config{BaseURL: tt.baseURL}
			if got := cfg.BaseURLIsLoopback(); got != tt.want {
				t.Errorf("BaseURLIsLoopback(%s) = %v, want %v", tt.baseURL, got, tt.want)
			}
		})
	}
}

func merge(base, extra map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
