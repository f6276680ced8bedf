package middleware

import (
	"context"
	"sync/atomic"

	tghelpers "github.com/m3rciful/lumiabot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "metrics"

type countersCtxKey struct{}

// Counters tracks messages sent while handling one update.
type Counters struct {
	messages atomic.Int64
	kb       atomic.Bool
}

// Add records one sent message.
func (m *Counters) Add(hasKB bool) {
	if m == nil {
		return
	}
	m.messages.Add(1)
	if hasKB {
		m.kb.Store(true)
	}
}

// Snapshot returns the number of sent messages and whether any carried a keyboard.
func (m *Counters) Snapshot() (int, bool) {
	if m == nil {
		return 0, false
	}
	return int(m.messages.Load()), m.kb.Load()
}

// WithCounters attaches counters to ctx so sends made outside tele.Context are counted.
func WithCounters(ctx context.Context, m *Counters) context.Context {
	if m == nil {
		return ctx
	}
	return context.WithValue(ctx, countersCtxKey{}, m)
}

// RecordSend counts a message sent on behalf of the update carried by ctx.
func RecordSend(ctx context.Context, hasKB bool) {
	if ctx == nil {
		return
	}
	if m, ok := ctx.Value(countersCtxKey{}).(*Counters); ok {
		m.Add(hasKB)
	}
}

// CountersFrom returns the counters installed by MessageMetricsMiddleware.
func CountersFrom(c tele.Context) *Counters {
	if c == nil {
		return nil
	}
	m, _ := c.Get(countersKey).(*Counters)
	return m
}

// HandlerContext builds the logging context for c with its counters attached.
func HandlerContext(c tele.Context) context.Context {
	return WithCounters(tghelpers.BuildContext(c), CountersFrom(c))
}

// metricsContext wraps tele.Context to count sent messages and detect keyboard usage.
type metricsContext struct {
	tele.Context
	counters *Counters
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating message counters.
func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.counters.Add(hasKeyboard(opts))
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.counters.Add(hasKeyboard(opts))
	}
	return err
}

// Edit proxies tele.Context.Edit while updating message counters.
func (m metricsContext) Edit(what interface{}, opts ...interface{}) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		// Count edits as responses as well
		m.counters.Add(hasKeyboard(opts))
	}
	return err
}

// MessageMetricsMiddleware instruments context to track messages count and keyboard usage.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		m := CountersFrom(c)
		if m == nil {
			m = &Counters{}
			c.Set(countersKey, m)
		}
		return next(metricsContext{Context: c, counters: m})
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	return CountersFrom(c).Snapshot()
}
