package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// ErrMissingToken is returned when a command needs the bot but no token is set.
var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is required")

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken   string
	NotifyChatID    int64
	Location        *time.Location
	DatabaseURL     string
	WebAddr         string
	WebBaseURL      string
	SweepInterval   time.Duration
	ConversationTTL time.Duration
	LogLevel        string
	LogFormat       string
}

// Load reads configuration from the environment, optionally seeded from a .env file.
// A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function with sane defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}

	cfg := Config{
		TelegramToken: get("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:   get("DATABASE_URL"),
		WebAddr:       get("WEB_ADDR"),
		WebBaseURL:    get("WEB_BASE_URL"),
		LogLevel:      strings.ToLower(get("LOG_LEVEL")),
		LogFormat:     strings.ToLower(get("LOG_FORMAT")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "task_planner.db"
	}
	if cfg.WebAddr == "" {
		cfg.WebAddr = ":8000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}

	if raw := get("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.NotifyChatID = chatID
	}

	zone := get("TIME_ZONE")
	if zone == "" {
		zone = "UTC"
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return cfg, fmt.Errorf("TIME_ZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.SweepInterval, err = parseDuration(get("SWEEP_INTERVAL"), time.Minute); err != nil {
		return cfg, fmt.Errorf("SWEEP_INTERVAL: %w", err)
	}
	if cfg.ConversationTTL, err = parseDuration(get("CONVERSATION_TTL"), 30*time.Minute); err != nil {
		return cfg, fmt.Errorf("CONVERSATION_TTL: %w", err)
	}

	return cfg, nil
}

// RequireTelegram reports whether the bot credential is present.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return ErrMissingToken
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}
