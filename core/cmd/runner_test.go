package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/lumiabot/core/config"
	coretelegram "github.com/m3rciful/lumiabot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	started, closed bool
	optsErr         error
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { a.started = true; return nil },
	}, a.optsErr
}

func (a *fakeApp) Close() error { a.closed = true; return nil }

func baseOptions(app *fakeApp, loggerDown *bool) Options {
	return Options{
		ConfigEnvVar:      "LUMIABOT_TEST_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error {
			*loggerDown = true
			return nil
		},
	}
}

func TestRun_LifecycleAndTeardown(t *testing.T) {
	app := &fakeApp{}
	var loggerDown bool
	opts := baseOptions(app, &loggerDown)
	opts.RunTelegram = func(ctx context.Context, ro coretelegram.RunOptions) error {
		require.NoError(t, ro.OnStart(ctx, coretelegram.Runtime{}))
		return ro.OnStop(ctx, coretelegram.Runtime{})
	}

	require.NoError(t, Run(opts))
	assert.True(t, app.started)
	assert.True(t, app.closed)
	assert.True(t, loggerDown)
}

func TestRun_ConfigPathFromEnv(t *testing.T) {
	t.Setenv("LUMIABOT_TEST_CONFIG", "/etc/lumiabot.yaml")
	var seen string
	var loggerDown bool
	opts := baseOptions(&fakeApp{}, &loggerDown)
	opts.LoadConfig = func(path string) (ConfigCarrier, error) {
		seen = path
		return nil, errors.New("stop here")
	}

	assert.ErrorContains(t, Run(opts), "failed to load config")
	assert.Equal(t, "/etc/lumiabot.yaml", seen)
}

func TestRun_Rejects(t *testing.T) {
	var loggerDown bool
	assert.ErrorIs(t, Run(Options{}), errNoLoader)

	opts := baseOptions(&fakeApp{}, &loggerDown)
	opts.Bootstrap = nil
	assert.ErrorIs(t, Run(opts), errNoBootstrap)

	opts = baseOptions(&fakeApp{}, &loggerDown)
	opts.DefaultConfigPath = ""
	assert.ErrorContains(t, Run(opts), "config path not provided")

	opts = baseOptions(&fakeApp{}, &loggerDown)
	opts.LoadConfig = func(string) (ConfigCarrier, error) { return carrier{}, nil }
	assert.ErrorContains(t, Run(opts), "missing core configuration")
}

func TestRun_OptionsErrorStillTearsDown(t *testing.T) {
	app := &fakeApp{optsErr: errors.New("no routes")}
	var loggerDown bool
	opts := baseOptions(app, &loggerDown)

	assert.ErrorContains(t, Run(opts), "telegram options build failed")
	assert.True(t, app.closed)
	assert.True(t, loggerDown)
}
