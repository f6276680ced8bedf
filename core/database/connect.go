package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/lumiabot/core/logger"
)

const connectRetryEvery = 2 * time.Second

// Connect opens the pool and pings the server, retrying until
// cfg.ConnectTimeout so the bot can start alongside its database.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.connectTimeout())
	defer cancel()

	start := time.Now()
	target := []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}

	var (
		db       *sqlx.DB
		err      error
		attempts int
	)
	for {
		attempts++
		if db, err = sqlx.ConnectContext(ctx, "postgres", cfg.DSN()); err == nil {
			break
		}
		logger.Debug(ctx, "db", "db.connect.retry", append(target,
			slog.Int("attempts", attempts),
			slog.String("err", err.Error()),
		)...)
		if werr := pause(ctx, connectRetryEvery); werr != nil {
			logger.Error(ctx, "db", "db.connect", append(target,
				slog.String("status", "fail"),
				slog.Int("attempts", attempts),
				slog.Duration("duration", time.Since(start)),
				slog.String("err", err.Error()),
			)...)
			return nil, fmt.Errorf("db connect %s: %w", cfg.Redacted(), err)
		}
	}

	pool := cfg.maxConnections()
	db.SetMaxOpenConns(pool)
	db.SetMaxIdleConns(pool)

	logger.Info(ctx, "db", "db.connect", append(target,
		slog.String("status", "ok"),
		slog.Int("attempts", attempts),
		slog.Int("pool_open", pool),
		slog.Duration("duration", time.Since(start)),
	)...)
	return db, nil
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
