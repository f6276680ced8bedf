package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/lumiabot/core/config"
	"github.com/m3rciful/lumiabot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareOptions plugs bot-specific behaviour into the shared chain.
type MiddlewareOptions struct {
	// OnPanic answers the user after a handler panicked.
	OnPanic tele.HandlerFunc
	// OnLimited replies to users hitting the anti-flood interval.
	OnLimited tele.HandlerFunc
	// RateLimitBypass lets matching updates skip the anti-flood interval.
	RateLimitBypass func(tele.Context) bool
	// Locker serializes updates per user when set.
	Locker middleware.Locker
	// Block rejects updates from blocked users when set.
	Block *middleware.BlockOptions
}

// DefaultMiddlewares builds the shared middleware chain for bots.
// Order: recover, rate_limit, logger, metrics, serialize, block.
func DefaultMiddlewares(cfg *coreconfig.Config, opts MiddlewareOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.Recover(opts.OnPanic)},
	}

	if cfg != nil {
		if interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond; interval > 0 {
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
					Interval:  interval,
					Exclude:   cfg.RateLimit.ExcludeUpdates,
					Bypass:    opts.RateLimitBypass,
					OnLimited: opts.OnLimited,
				}),
			})
		}
	}

	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)

	if opts.Locker != nil {
		mws = append(mws, Middleware{Name: "serialize", Use: middleware.Serialize(opts.Locker)})
	}
	if opts.Block != nil {
		mws = append(mws, Middleware{Name: "block", Use: middleware.BlockGuard(*opts.Block)})
	}

	return mws
}
