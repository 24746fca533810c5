package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "task_planner.db", cfg.DatabaseURL)
	assert.Equal(t, ":8000", cfg.WebAddr)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 30*time.Minute, cfg.ConversationTTL)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, int64(0), cfg.NotifyChatID)
	assert.ErrorIs(t, cfg.RequireTelegram(), ErrMissingToken)
}

func TestFromEnvValues(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"TELEGRAM_BOT_TOKEN": " 123:abc ",
		"TELEGRAM_CHAT_ID":   "-10042",
		"TIME_ZONE":          "Europe/Moscow",
		"SWEEP_INTERVAL":     "15s",
		"CONVERSATION_TTL":   "5m",
		"LOG_LEVEL":          "DEBUG",
	}))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, int64(-100042), cfg.NotifyChatID)
	assert.Equal(t, "Europe/Moscow", cfg.Location.String())
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.ConversationTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.RequireTelegram())
}

func TestFromEnvInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad chat id":  {"TELEGRAM_CHAT_ID": "abc"},
		"bad zone":     {"TIME_ZONE": "Mars/Olympus"},
		"bad interval": {"SWEEP_INTERVAL": "soon"},
		"negative ttl": {"CONVERSATION_TTL": "-1m"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envMap(env))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("WEB_BASE_URL=https://planner.example\n"), 0o600))
	t.Setenv("WEB_BASE_URL", "")
	require.NoError(t, os.Unsetenv("WEB_BASE_URL"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://planner.example", cfg.WebBaseURL)
	require.NoError(t, os.Unsetenv("WEB_BASE_URL"))
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
