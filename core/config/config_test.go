package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() *Config {
	return &Config{Telegram: TelegramConfig{Token: "123:abc-DEF_9"}}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := valid()
	cfg.Telegram.RunMode = "Polling"
	cfg.Logging.Dir = "logs"
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", ""}

	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "prod", cfg.Logging.Profile)
	assert.Equal(t, "bot.log", cfg.Logging.File)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"missing token":   func(c *Config) { c.Telegram.Token = "" },
		"malformed token": func(c *Config) { c.Telegram.Token = "not a token" },
		"run mode":        func(c *Config) { c.Telegram.RunMode = "socket" },
		"webhook url":     func(c *Config) { c.Telegram.RunMode = RunModeWebhook },
		"log level":       func(c *Config) { c.Logging.Level = "loud" },
		"log format":      func(c *Config) { c.Logging.Format = "xml" },
		"interval":        func(c *Config) { c.RateLimit.IntervalMS = -1 },
		"exclusion":       func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"inline_query"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, Normalize(cfg))
		})
	}
	assert.ErrorIs(t, Normalize(nil), ErrNilConfig)
}

func TestLoadAppliesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "telegram:\n  token: \"1:yaml\"\nlogging:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("BOT_TOKEN", "2:env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2:env", cfg.Telegram.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestDecodeMissingFile(t *testing.T) {
	var cfg Config
	err := Decode(filepath.Join(t.TempDir(), "absent.yaml"), &cfg)
	assert.ErrorContains(t, err, "failed to read config file")
}
