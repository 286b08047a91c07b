package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"mahjong-tally/internal/stakes"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken     string        `env:"TELEGRAM_TOKEN"`
	DatabaseURL       string        `env:"DATABASE_URL" envDefault:"mahjong_tally.db"`
	DBLogLevel        string        `env:"DB_LOG_LEVEL" envDefault:"warn"`
	DBSlowThreshold   time.Duration `env:"DB_SLOW_THRESHOLD" envDefault:"1s"`
	StakePreset       string        `env:"STAKE_PRESET" envDefault:"3/6"`
	RandomOrgAPIKey   string        `env:"RANDOM_ORG_API_KEY"`
	RandomOrgURL      string        `env:"RANDOM_ORG_URL" envDefault:"https://api.random.org/json-rpc/4/invoke"`
	RoomSweepInterval time.Duration `env:"ROOM_SWEEP_INTERVAL" envDefault:"1h"`
	RoomIdleTTL       time.Duration `env:"ROOM_IDLE_TTL" envDefault:"12h"`
	CommandRate       float64       `env:"COMMAND_RATE" envDefault:"2"`
	CommandBurst      int           `env:"COMMAND_BURST" envDefault:"5"`
}

// Load reads an optional .env file and then environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds the config from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.StakePreset = strings.TrimSpace(cfg.StakePreset)
	cfg.RandomOrgAPIKey = strings.TrimSpace(cfg.RandomOrgAPIKey)
	cfg.DBLogLevel = strings.ToLower(strings.TrimSpace(cfg.DBLogLevel))

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "mahjong_tally.db"
	}
	switch cfg.DBLogLevel {
	case "silent", "error", "warn", "info":
	default:
		return cfg, fmt.Errorf("DB_LOG_LEVEL must be one of silent, error, warn, info")
	}
	if _, err := stakes.Preset(cfg.StakePreset); err != nil {
		return cfg, err
	}
	if cfg.CommandRate <= 0 {
		return cfg, fmt.Errorf("COMMAND_RATE must be positive")
	}
	if cfg.CommandBurst <= 0 {
		cfg.CommandBurst = 1
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}
