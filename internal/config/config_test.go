package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "labstock.db", cfg.DBPath)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "labstock-transitions", cfg.KafkaTopic)
	assert.Equal(t, 60, cfg.ActionRateLimit)
	assert.Equal(t, time.Minute, cfg.ActionRateWin)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.ExpiringSoonWindow)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ACTION_RATE_LIMIT", "5")
	t.Setenv("EXPIRING_SOON_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.ActionRateLimit)
	assert.Equal(t, 7*24*time.Hour, cfg.ExpiringSoonWindow)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric redis db", "REDIS_DB", "abc"},
		{"zero rate limit", "ACTION_RATE_LIMIT", "0"},
		{"negative rate window", "ACTION_RATE_WINDOW_SEC", "-1"},
		{"zero session ttl", "SESSION_TTL_HOUR", "0"},
		{"zero expiring window", "EXPIRING_SOON_DAYS", "0"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
