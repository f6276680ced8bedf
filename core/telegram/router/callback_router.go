package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/lumiabot/core/telegram"
	"github.com/m3rciful/lumiabot/core/telegram/callbacks"
)

// CallbackOptions overrides the registry's unknown-key handler.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches inline button presses by unique key. Known keys
// get the press acknowledged before the handler runs; unknown keys are left
// to the not-found handler, which is expected to answer with a notice.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	notFound := opts.NotFound
	if notFound == nil {
		notFound = reg.CallbackNotFound()
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		start := time.Now()
		key := callbacks.Key(cb)
		name := "callback." + normalizeHandlerName(key)

		h, ok := reg.GetCallback(key)
		switch {
		case ok:
			_ = c.Respond()
		case notFound != nil:
			h = notFound
		default:
			_ = c.Respond()
			logHandlerSummary(c, name, start, "skip", nil)
			return nil
		}
		return handleWithSummary(c, name, start, func() error { return h(c) })
	}}
}
