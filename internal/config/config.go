package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig aggregates runtime configuration, injected through environment
// variables so nothing is hardcoded per deployment.
type AppConfig struct {
	HTTPAddr string
	DBPath   string

	RedisAddr string
	RedisDB   int

	// Kafka cluster (comma separated brokers), topic and consumer group for
	// the transition audit pipeline.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Redis Stream outbox (API appends atomically, Relay forwards to Kafka).
	TransitionStream   string
	TransitionGroup    string
	TransitionConsumer string

	// Mutating workflow routes: rate limit window and duplicate-submission
	// guard TTLs.
	ActionRateLimit int
	ActionRateWin   time.Duration
	ActionOnceTTL   time.Duration
	ReorderLockTTL  time.Duration

	SessionTTL time.Duration

	// Horizon for the expiring-soon list.
	ExpiringSoonWindow time.Duration
}

// Load reads and validates configuration, falling back to defaults.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBPath:             getEnv("DB_PATH", "labstock.db"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            0,
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "labstock-transitions"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "labstock-transition-consumer"),
		TransitionStream:   getEnv("TRANSITION_STREAM", "labstock:transition_events"),
		TransitionGroup:    getEnv("TRANSITION_GROUP", "labstock-relay-group"),
		TransitionConsumer: getEnv("TRANSITION_CONSUMER", "labstock-relay-1"),
		ActionRateLimit:    60,
		ActionRateWin:      time.Minute,
		ActionOnceTTL:      24 * time.Hour,
		ReorderLockTTL:     30 * time.Second,
		SessionTTL:         12 * time.Hour,
		ExpiringSoonWindow: 30 * 24 * time.Hour,
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	rateLimit, err := getEnvInt("ACTION_RATE_LIMIT", cfg.ActionRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid ACTION_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("ACTION_RATE_LIMIT must be > 0")
	}
	cfg.ActionRateLimit = rateLimit

	rateWinSec, err := getEnvInt("ACTION_RATE_WINDOW_SEC", int(cfg.ActionRateWin.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid ACTION_RATE_WINDOW_SEC: %w", err)
	}
	if rateWinSec <= 0 {
		return AppConfig{}, fmt.Errorf("ACTION_RATE_WINDOW_SEC must be > 0")
	}
	cfg.ActionRateWin = time.Duration(rateWinSec) * time.Second

	onceTTLHour, err := getEnvInt("ACTION_ONCE_TTL_HOUR", int(cfg.ActionOnceTTL.Hours()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid ACTION_ONCE_TTL_HOUR: %w", err)
	}
	if onceTTLHour <= 0 {
		return AppConfig{}, fmt.Errorf("ACTION_ONCE_TTL_HOUR must be > 0")
	}
	cfg.ActionOnceTTL = time.Duration(onceTTLHour) * time.Hour

	lockTTLSec, err := getEnvInt("REORDER_LOCK_TTL_SEC", int(cfg.ReorderLockTTL.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REORDER_LOCK_TTL_SEC: %w", err)
	}
	if lockTTLSec <= 0 {
		return AppConfig{}, fmt.Errorf("REORDER_LOCK_TTL_SEC must be > 0")
	}
	cfg.ReorderLockTTL = time.Duration(lockTTLSec) * time.Second

	sessionTTLHour, err := getEnvInt("SESSION_TTL_HOUR", int(cfg.SessionTTL.Hours()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SESSION_TTL_HOUR: %w", err)
	}
	if sessionTTLHour <= 0 {
		return AppConfig{}, fmt.Errorf("SESSION_TTL_HOUR must be > 0")
	}
	cfg.SessionTTL = time.Duration(sessionTTLHour) * time.Hour

	expiringDays, err := getEnvInt("EXPIRING_SOON_DAYS", int(cfg.ExpiringSoonWindow.Hours()/24))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid EXPIRING_SOON_DAYS: %w", err)
	}
	if expiringDays <= 0 {
		return AppConfig{}, fmt.Errorf("EXPIRING_SOON_DAYS must be > 0")
	}
	cfg.ExpiringSoonWindow = time.Duration(expiringDays) * 24 * time.Hour

	if len(cfg.KafkaBrokers) == 0 {
		return AppConfig{}, fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if cfg.KafkaTopic == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
	}
	if cfg.KafkaGroupID == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
	}
	if cfg.TransitionStream == "" {
		return AppConfig{}, fmt.Errorf("TRANSITION_STREAM must not be empty")
	}
	if cfg.TransitionGroup == "" {
		return AppConfig{}, fmt.Errorf("TRANSITION_GROUP must not be empty")
	}
	if cfg.TransitionConsumer == "" {
		return AppConfig{}, fmt.Errorf("TRANSITION_CONSUMER must not be empty")
	}

	return cfg, nil
}

// getEnv reads a string variable, falling back when unset or blank.
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt reads an integer variable, falling back when unset or blank.
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// splitCSV parses a comma separated string into its non-empty parts.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
