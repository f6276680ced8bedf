// Package service holds the bot's business rules: the download quota and
// role based access decisions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/lumiabot/core/logger"
	"github.com/m3rciful/lumiabot/internal/errs"
	"github.com/m3rciful/lumiabot/internal/model"
	"github.com/m3rciful/lumiabot/internal/repository"
)

const (
	DefaultDailyLimit = 2
	DefaultWindow     = 24 * time.Hour
)

// QuotaOptions configures the download quota.
type QuotaOptions struct {
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

// Quota enforces the per-user download limit over a rolling window.
type Quota struct {
	repo   repository.Repository
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewQuota builds a quota service; zero options fall back to 2 per 24h.
func NewQuota(repo repository.Repository, opts QuotaOptions) *Quota {
	q := &Quota{
		repo:   repo,
		limit:  opts.Limit,
		window: opts.Window,
		now:    opts.Now,
	}
	if q.limit <= 0 {
		q.limit = DefaultDailyLimit
	}
	if q.window <= 0 {
		q.window = DefaultWindow
	}
	if q.now == nil {
		q.now = time.Now
	}
	return q
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed bool
	// Wait is the time left until the window resets, set when denied.
	Wait time.Duration
}

// Check runs at download entry. It creates the user record on first use,
// resets the counter once the window has passed and, when the user is still
// under the limit, stamps last_requested with the current time.
func (q *Quota) Check(ctx context.Context, p model.Profile) (Decision, error) {
	now := q.now()
	u, err := q.repo.User(ctx, p.ID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		u = model.NewUser(p, now)
	case err != nil:
		return Decision{}, fmt.Errorf("quota check: %w", err)
	case now.Sub(u.LastRequested) >= q.window:
		u.TotalRequests = 0
	}

	if u.TotalRequests >= q.limit {
		wait := u.LastRequested.Add(q.window).Sub(now)
		logger.Info(ctx, "service.quota", "quota.denied",
			slog.Int("count", u.TotalRequests),
			slog.Duration("wait", wait),
		)
		return Decision{Allowed: false, Wait: wait}, nil
	}

	u.LastRequested = now
	if err := q.repo.UpsertUser(ctx, u); err != nil {
		return Decision{}, fmt.Errorf("quota check: %w", err)
	}
	logger.Debug(ctx, "service.quota", "quota.allowed",
		slog.Int("count", u.TotalRequests),
	)
	return Decision{Allowed: true}, nil
}

// Consume increments the counter after a successful delivery. A missing
// record is created so a consumed download is never lost.
func (q *Quota) Consume(ctx context.Context, p model.Profile) error {
	u, err := q.repo.User(ctx, p.ID)
	if errors.Is(err, errs.ErrNotFound) {
		u = model.NewUser(p, q.now())
	} else if err != nil {
		return fmt.Errorf("quota consume: %w", err)
	}
	u.TotalRequests++
	if err := q.repo.UpsertUser(ctx, u); err != nil {
		return fmt.Errorf("quota consume: %w", err)
	}
	logger.Debug(ctx, "service.quota", "quota.consumed",
		slog.Int("count", u.TotalRequests),
	)
	return nil
}

// FormatWait renders the time left as "H hours, M minutes", rounding minutes up.
func FormatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%d hours, %d minutes", hours, minutes+1)
}
