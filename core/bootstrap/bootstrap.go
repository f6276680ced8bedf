package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/lumiabot/core/config"
	coredatabase "github.com/m3rciful/lumiabot/core/database"
	"github.com/m3rciful/lumiabot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config
	// Database is optional; nil skips connect and migrations.
	Database *coredatabase.Config
	Modules  Modules

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Close releases resources opened during bootstrap.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, optionally connects to the database and applies
// migrations, then runs seeders against the resulting storage.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if opts.Database != nil {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(*opts.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(*opts.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		res.DB = db
	}

	for _, sd := range opts.Modules.Seeders {
		if sd.Seed == nil {
			continue
		}
		if sd.NeedsDB && res.DB == nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: seeder %s: %w", sd.Name, ErrNoDatabase)
		}
		start := time.Now()
		if err := sd.Seed(ctx, res); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: seeder %s failed: %w", sd.Name, err)
		}
		logger.Info(ctx, "db.seed", "seed.done",
			slog.String("seeder", sd.Name),
			slog.Duration("duration", time.Since(start)),
		)
	}

	return res, nil
}
