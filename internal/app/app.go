// Package app wires configuration, storage, sessions and handlers into a
// runnable Telegram bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/lumiabot/core/bootstrap"
	corecmd "github.com/m3rciful/lumiabot/core/cmd"
	coreconfig "github.com/m3rciful/lumiabot/core/config"
	coredatabase "github.com/m3rciful/lumiabot/core/database"
	"github.com/m3rciful/lumiabot/core/logger"
	tg "github.com/m3rciful/lumiabot/core/telegram"
	"github.com/m3rciful/lumiabot/core/telegram/router"
	"github.com/m3rciful/lumiabot/core/telegram/state"
	"github.com/m3rciful/lumiabot/internal/config"
	"github.com/m3rciful/lumiabot/internal/gateway"
	"github.com/m3rciful/lumiabot/internal/handler"
	"github.com/m3rciful/lumiabot/internal/repository"
	"github.com/m3rciful/lumiabot/internal/repository/jsonstore"
	"github.com/m3rciful/lumiabot/internal/repository/postgres"
	"github.com/m3rciful/lumiabot/internal/service"

	tele "gopkg.in/telebot.v4"
)

const redisPingTimeout = 5 * time.Second

// sessionMedia lists the non-text endpoints routed to an open session; each
// flow decides which kinds it accepts.
var sessionMedia = []string{
	tele.OnPhoto, tele.OnVideo, tele.OnSticker, tele.OnAnimation,
	tele.OnVoice, tele.OnAudio, tele.OnVideoNote,
	tele.OnContact, tele.OnLocation, tele.OnVenue,
	tele.OnDice, tele.OnGame, tele.OnInvoice,
}

// Hooks override infrastructure constructors, mainly for tests.
type Hooks struct {
	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
	// Redis builds the session client; defaults to redis.ParseURL + NewClient.
	Redis func(url string) (redis.UniversalClient, error)
}

// App is the assembled bot.
type App struct {
	cfg      *config.Config
	infra    *bootstrap.Result
	redis    redis.UniversalClient
	repo     repository.Repository
	gateway  *gateway.Telebot
	handler  *handler.Handler
	registry *tg.Registry
}

// Bootstrap adapts New to the runner signature.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(ctx, cfg, Hooks{})
}

// New initializes logging and storage, then builds services and handlers.
func New(ctx context.Context, cfg *config.Config, hooks Hooks) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	opts := bootstrap.Options{
		Config:     &cfg.Config,
		LoggerInit: hooks.LoggerInit,
		Connect:    hooks.Connect,
		Migrate:    hooks.Migrate,
	}
	if cfg.Storage.Backend == config.StoragePostgres {
		opts.Database = &cfg.Database
		if cfg.Storage.SeedCatalog != "" {
			opts.Modules.Seeders = append(opts.Modules.Seeders, catalogSeeder(cfg.Storage.SeedCatalog))
		}
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, infra: infra}
	if err := a.build(ctx, hooks); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, hooks Hooks) error {
	cfg := a.cfg
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		a.repo = postgres.New(a.infra.DB)
	default:
		st, err := jsonstore.Open(cfg.Storage.Dir)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.repo = st
	}

	store, err := a.sessionStore(ctx, hooks)
	if err != nil {
		return err
	}

	access := service.NewAccess(a.repo, cfg.SuperAdmins)
	quota := service.NewQuota(a.repo, service.QuotaOptions{
		Limit:  cfg.Downloads.DailyLimit,
		Window: cfg.Downloads.Window,
	})
	a.gateway = gateway.NewTelebot(nil)
	a.handler = handler.New(handler.Deps{
		Repo:     a.repo,
		Gateway:  a.gateway,
		Access:   access,
		Quota:    quota,
		Sessions: state.NewTracker[handler.Incoming](store, state.Options{}),
		Channels: handler.Channels{
			Firmware:  cfg.Channels.Firmware,
			Emergency: cfg.Channels.Emergency,
			Upload:    cfg.Channels.Upload,
			Request:   cfg.Channels.Request,
			Unblock:   cfg.Channels.Unblock,
		},
		OnLookupFailure: handler.LookupPolicy(cfg.Flows.OnLookupFailure),
	})

	a.registry = tg.NewRegistry()
	if err := a.handler.Register(a.registry); err != nil {
		return fmt.Errorf("app: register handlers: %w", err)
	}

	logger.Info(ctx, "app", "wired",
		slog.String("backend", cfg.Storage.Backend),
		slog.String("session", cfg.Session.Backend),
		slog.Int("count", len(cfg.SuperAdmins)),
	)
	return nil
}

func (a *App) sessionStore(ctx context.Context, hooks Hooks) (state.Store, error) {
	cfg := a.cfg.Session
	if cfg.Backend != config.SessionRedis {
		return state.NewMemoryStore(), nil
	}

	newClient := hooks.Redis
	if newClient == nil {
		newClient = dialRedis
	}
	client, err := newClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("app: redis: %w", err)
	}
	a.redis = client

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("app: redis ping: %w", err)
	}
	return state.NewRedisStore(client, cfg.Prefix, cfg.TTL), nil
}

func dialRedis(url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

// catalogSeeder upserts a devices.json file into postgres.
func catalogSeeder(path string) bootstrap.Seeder {
	seed := func(ctx context.Context, res *bootstrap.Result) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}
		catalog, err := jsonstore.ParseCatalog(data)
		if err != nil {
			return fmt.Errorf("parse catalog: %w", err)
		}
		if err := postgres.New(res.DB).SeedCatalog(ctx, catalog); err != nil {
			return err
		}
		logger.Info(ctx, "db.seed", "catalog.seeded",
			slog.Int("count", len(catalog)),
		)
		return nil
	}
	return bootstrap.Seeder{Name: "catalog", NeedsDB: true, Seed: seed}
}

// TelegramRunOptions builds routes and middlewares for the runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	if a == nil || a.handler == nil {
		return tg.RunOptions{}, fmt.Errorf("app: not initialized")
	}

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		Access: a.handler.AccessOptions(),
	})
	routes = append(routes, router.TextRoutes(a.handler, a.registry, router.TextOptions{
		Media: sessionMedia,
	})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))

	return tg.RunOptions{
		Config:   &a.cfg.Config,
		Registry: a.registry,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, tg.MiddlewareOptions{
			OnPanic:   handler.Tele(a.handler.Failed),
			OnLimited: handler.Tele(a.handler.SlowDown),
			// Answers to an open flow are never throttled.
			RateLimitBypass: a.handler.InProgress,
			Locker:          a.handler,
			Block:           a.handler.BlockOptions(),
		}),
		Routes:  routes,
		OnStart: a.onStart,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	if rt.Bot == nil {
		return fmt.Errorf("app: runtime has no bot")
	}
	a.gateway.Attach(rt.Bot)
	return nil
}

// Close releases redis and database connections.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.infra.Close())
	return errors.Join(errs...)
}
