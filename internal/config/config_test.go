package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", " token ")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.TelegramToken != "token" {
		t.Fatalf("expected trimmed token, got %q", cfg.TelegramToken)
	}
	if cfg.DatabaseURL != "mahjong_tally.db" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
	if cfg.StakePreset != "3/6" {
		t.Fatalf("unexpected preset %q", cfg.StakePreset)
	}
	if cfg.RoomSweepInterval != time.Hour || cfg.RoomIdleTTL != 12*time.Hour {
		t.Fatalf("unexpected sweep settings %v/%v", cfg.RoomSweepInterval, cfg.RoomIdleTTL)
	}
	if cfg.DBLogLevel != "warn" || cfg.DBSlowThreshold != time.Second {
		t.Fatalf("unexpected db log settings %q/%v", cfg.DBLogLevel, cfg.DBSlowThreshold)
	}
	if cfg.CommandRate != 2 || cfg.CommandBurst != 5 {
		t.Fatalf("unexpected rate settings %v/%d", cfg.CommandRate, cfg.CommandBurst)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("STAKE_PRESET", "10/20")
	t.Setenv("ROOM_SWEEP_INTERVAL", "15m")
	t.Setenv("RANDOM_ORG_API_KEY", "abc")
	t.Setenv("DB_LOG_LEVEL", " Info ")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.StakePreset != "10/20" || cfg.RoomSweepInterval != 15*time.Minute || cfg.RandomOrgAPIKey != "abc" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.DBLogLevel != "info" {
		t.Fatalf("expected normalized db log level, got %q", cfg.DBLogLevel)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing token":  {"TELEGRAM_TOKEN": ""},
		"unknown preset": {"TELEGRAM_TOKEN": "t", "STAKE_PRESET": "7/14"},
		"bad rate":       {"TELEGRAM_TOKEN": "t", "COMMAND_RATE": "0"},
		"bad duration":   {"TELEGRAM_TOKEN": "t", "ROOM_IDLE_TTL": "soon"},
		"bad db log":     {"TELEGRAM_TOKEN": "t", "DB_LOG_LEVEL": "loud"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := Parse(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
