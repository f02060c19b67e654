package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "LOG_PRETTY", "STORE_KIND", "PARTICIPANTS_FILE", "NATS_ENABLED", "NATS_URL",
		"NATS_MAX_RETRIES", "GATEWAY_CONSUME_FROM_BUS", "RAFFLE_API_URL",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server:
  port: "9090"
store:
  kind: postgres
raffle:
  default_duration: 10
  notice_window: 5s
nats:
  enabled: true
  url: nats://bus:4222
`)
	t.Setenv("PORT", "7070")
	t.Setenv("NATS_MAX_RETRIES", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Kind)
	assert.Equal(t, float64(10), cfg.Raffle.DefaultDuration)
	assert.Equal(t, float64(1), cfg.Raffle.MinDuration)
	assert.Equal(t, 5*time.Second, cfg.Raffle.NoticeWindow)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "nats://bus:4222", cfg.NATS.URL)
	assert.Equal(t, 5, cfg.NATS.MaxRetries)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "unknown store", env: map[string]string{"STORE_KIND": "redis"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "default below minimum", body: "raffle:\n  default_duration: 0.5\n"},
		{name: "history cap below default", body: "raffle:\n  max_history_limit: 5\n"},
		{name: "bad gateway url", env: map[string]string{"RAFFLE_API_URL": "::"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.body != "" {
				path = writeFile(t, tt.body)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRaffleSettings(t *testing.T) {
	s := Default().Raffle.Settings()
	assert.Equal(t, float64(7), s.DefaultDuration)
	assert.Equal(t, 3*time.Second, s.NoticeWindow)
	assert.Equal(t, 100, s.MaxHistoryLimit)
}

func TestNATSBus(t *testing.T) {
	c := Default().NATS
	c.URL = "nats://bus:4222"
	c.MaxRetries = 7

	bus := c.Bus()
	assert.Equal(t, "nats://bus:4222", bus.URL)
	assert.Equal(t, "RAFFLE_EVENTS", bus.StreamName)
	assert.Equal(t, 7, bus.MaxRetries)
	assert.Equal(t, "raffle.events.>", bus.SubjectFilter())
}
