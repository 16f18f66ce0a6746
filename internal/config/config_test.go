package config

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BackendURL != "http://127.0.0.1:8000" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.KeyPrefix != "herb_wise_chat_session" {
		t.Errorf("KeyPrefix = %q", cfg.KeyPrefix)
	}
	if cfg.IndexKey != "herb_wise_chat_sessions" {
		t.Errorf("IndexKey = %q", cfg.IndexKey)
	}
	if cfg.SessionDuration != 24*time.Hour {
		t.Errorf("SessionDuration = %v, want 24h", cfg.SessionDuration)
	}
	if cfg.TitleBudget != 30 {
		t.Errorf("TitleBudget = %d, want 30", cfg.TitleBudget)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HERBWISE_BACKEND_URL", "https://herbs.example.com")
	t.Setenv("HERBWISE_SECRET_KEY", "test_key")
	t.Setenv("HERBWISE_SESSION_DURATION", "48h")
	t.Setenv("HERBWISE_KEY_PREFIX", "test_prefix")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BackendURL != "https://herbs.example.com" {
		t.Errorf("BackendURL = %q, env override ignored", cfg.BackendURL)
	}
	if cfg.SecretKey != "test_key" {
		t.Errorf("SecretKey = %q, env override ignored", cfg.SecretKey)
	}
	if cfg.SessionDuration != 48*time.Hour {
		t.Errorf("SessionDuration = %v, want 48h", cfg.SessionDuration)
	}
	if cfg.KeyPrefix != "test_prefix" {
		t.Errorf("KeyPrefix = %q, env override ignored", cfg.KeyPrefix)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			BackendURL:      "http://127.0.0.1:8000",
			RequestTimeout:  30 * time.Second,
			ImageTimeout:    10 * time.Second,
			SecretKey:       "k",
			SessionDuration: 24 * time.Hour,
			TitleBudget:     30,
			ListenAddr:      "127.0.0.1:5173",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"bad scheme", func(c *Config) { c.BackendURL = "ftp://x" }, ErrInvalidBackendURL},
		{"no host", func(c *Config) { c.BackendURL = "http://" }, ErrInvalidBackendURL},
		{"empty secret", func(c *Config) { c.SecretKey = "" }, ErrMissingSecretKey},
		{"zero duration", func(c *Config) { c.SessionDuration = 0 }, ErrInvalidSessionDuration},
		{"zero budget", func(c *Config) { c.TitleBudget = 0 }, ErrInvalidTitleBudget},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, ErrInvalidTimeout},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }, ErrInvalidListenAddr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarshalJSONMasksSecret(t *testing.T) {
	cfg := Config{SecretKey: "very_secret_value"}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "very_secret_value") {
		t.Errorf("secret leaked into JSON: %s", data)
	}
	if !strings.Contains(string(data), `"secret_key":"***"`) {
		t.Errorf("secret not masked: %s", data)
	}
}
