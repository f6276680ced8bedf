package middleware

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/m3rciful/lumiabot/core/logger"
	tghelpers "github.com/m3rciful/lumiabot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures the anti-flood middleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two counted updates of one user.
	Interval time.Duration
	// Exclude lists kinds that are never limited: "message" or "callback".
	Exclude []string
	// Bypass admits an update without counting it, e.g. a reply to a question
	// the bot is waiting on.
	Bypass    func(tele.Context) bool
	OnLimited tele.HandlerFunc
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// floodGate remembers when each user was last let through. Entries older
// than the interval carry no information and are dropped on sweep.
type floodGate struct {
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	seen      map[int64]time.Time
	lastSweep time.Time
}

func (g *floodGate) admit(userID int64) bool {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()

	if now.Sub(g.lastSweep) >= 10*g.interval {
		for id, t := range g.seen {
			if now.Sub(t) >= g.interval {
				delete(g.seen, id)
			}
		}
		g.lastSweep = now
	}
	if last, ok := g.seen[userID]; ok && now.Sub(last) < g.interval {
		return false
	}
	g.seen[userID] = now
	return true
}

// limitKind folds UpdateKind into the two classes rate limit exclusions use.
func limitKind(upd tele.Update) string {
	switch k := UpdateKind(upd); k {
	case "callback", "other":
		return k
	default:
		return "message"
	}
}

// RateLimitMiddleware drops updates that arrive within opts.Interval of the
// previous one from the same user and calls OnLimited instead.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	gate := &floodGate{interval: opts.Interval, now: opts.Now, seen: make(map[int64]time.Time)}
	if gate.now == nil {
		gate.now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := limitKind(c.Update())
			if slices.Contains(opts.Exclude, kind) {
				return next(c)
			}
			if opts.Bypass != nil && opts.Bypass(c) {
				return next(c)
			}
			if gate.admit(user.ID) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
