package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/lumiabot/core/config"
	coredatabase "github.com/m3rciful/lumiabot/core/database"
	tg "github.com/m3rciful/lumiabot/core/telegram"
	"github.com/m3rciful/lumiabot/internal/config"

	tele "gopkg.in/telebot.v4"
)

func noLogger(*coreconfig.Config) error { return nil }

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Config: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{Token: "123:abc"},
		},
		Channels: config.ChannelsConfig{
			Firmware: -1, Emergency: -2, Upload: -3, Request: -4, Unblock: -5,
		},
		SuperAdmins: []int64{1},
		Storage:     config.StorageConfig{Dir: t.TempDir()},
	}
	require.NoError(t, config.Normalize(cfg))
	return cfg
}

func hasRoute(routes []tg.Route, endpoint any) bool {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return true
		}
	}
	return false
}

func TestNewJSONBackend(t *testing.T) {
	a, err := New(context.Background(), baseConfig(t), Hooks{LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	for _, endpoint := range []any{"/download", "/notify_all", "/cancel", tele.OnText, tele.OnDocument, tele.OnPhoto, tele.OnVoice, tele.OnContact, tele.OnCallback} {
		assert.True(t, hasRoute(opts.Routes, endpoint), "missing route %v", endpoint)
	}

	var names []string
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	assert.Equal(t, []string{"recover", "logger", "metrics", "serialize", "block"}, names)

	assert.Error(t, opts.OnStart(context.Background(), tg.Runtime{}))
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	assert.NoError(t, opts.OnStart(context.Background(), tg.Runtime{Bot: bot}))
}

func TestNewPostgresSeedsCatalog(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Storage.Backend = config.StoragePostgres
	cfg.Storage.SeedCatalog = filepath.Join(t.TempDir(), "devices.json")
	require.NoError(t, os.WriteFile(cfg.Storage.SeedCatalog, []byte(`[
  {"ProductType": "RM-1085", "ProductCodes": [{"ProductCode": "059X4T1", "DownloadID": [12]}], "Emergency": {"DownloadID": null}}
]`), 0o600))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO devices").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO product_codes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	migrated := false
	a, err := New(context.Background(), cfg, Hooks{
		LoggerInit: noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			return sqlx.NewDb(db, "sqlmock"), nil
		},
		Migrate: func(coredatabase.Config) error {
			migrated = true
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, migrated)
	require.NoError(t, a.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisBadURL(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Session.Backend = config.SessionRedis
	cfg.Session.RedisURL = "not a url"

	_, err := New(context.Background(), cfg, Hooks{LoggerInit: noLogger})
	assert.ErrorContains(t, err, "redis")
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), foreign{})
	assert.Error(t, err)
}

type foreign struct{}

func (foreign) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }
