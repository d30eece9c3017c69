package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBDSN    string
	RedisDSN string
	HTTPAddr string
	LogLevel string

	// BotToken authenticates against the Discord REST API. Kept in-memory
	// only; log it through logging.MaskToken if at all.
	BotToken       string
	AdminSecretKey string

	// Scheduler knobs.
	PollInterval time.Duration
	MaxPerTick   int

	// Anchor preview truncation bounds. Guild channels render a rich embed,
	// DMs render an inline text block with a slightly larger budget.
	PreviewLength   int
	DMPreviewLength int

	// Delivery audit log (S3/R2). Empty endpoint selects the local simulator.
	AuditEndpoint string
	AuditBucket   string
	AuditKeysRaw  string
}

func Load() (Config, error) {
	cfg := Config{
		DBDSN:          os.Getenv("DB_DSN"),
		RedisDSN:       getenvDefault("REDIS_DSN", "redis://localhost:6379/0"),
		HTTPAddr:       getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:       getenvDefault("LOG_LEVEL", "info"),
		BotToken:       os.Getenv("BOT_TOKEN"),
		AdminSecretKey: getenvDefault("ADMIN_SECRET_KEY", ""),
		AuditEndpoint:  getenvDefault("AUDIT_ENDPOINT", ""),
		AuditBucket:    getenvDefault("AUDIT_BUCKET", ""),
		AuditKeysRaw:   os.Getenv("AUDIT_KEYS"),
	}

	if cfg.DBDSN == "" {
		return Config{}, errors.New("missing DB_DSN")
	}
	if cfg.BotToken == "" {
		return Config{}, errors.New("missing BOT_TOKEN")
	}

	cfg.PollInterval = time.Duration(getenvInt("POLL_INTERVAL_SECONDS", 30)) * time.Second
	if cfg.PollInterval < time.Second {
		return Config{}, errors.New("POLL_INTERVAL_SECONDS must be at least 1")
	}

	cfg.MaxPerTick = getenvInt("MAX_REMINDERS_PER_TICK", 100)
	if cfg.MaxPerTick < 1 {
		return Config{}, errors.New("MAX_REMINDERS_PER_TICK must be positive")
	}

	cfg.PreviewLength = getenvInt("PREVIEW_LENGTH", 100)
	cfg.DMPreviewLength = getenvInt("DM_PREVIEW_LENGTH", 150)

	return cfg, nil
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
