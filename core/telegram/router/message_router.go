package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/lumiabot/core/telegram"
)

// FSM is the session tracker as seen by the routers.
type FSM interface {
	InProgress(c tele.Context) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions sets what happens to input nobody is waiting for.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	// Media lists extra endpoints (tele.OnPhoto, tele.OnVideo, ...) routed to
	// the FSM while a session is active and ignored otherwise.
	Media []string
}

// named pairs a handler with the name its summary line is logged under.
type named struct {
	name string
	h    tele.HandlerFunc
}

// sessionFirst hands the update to the FSM when the sender has a session
// open and otherwise to the first resolver that yields a handler.
func sessionFirst(fsm FSM, sessionName, skipName string, resolvers ...func(tele.Context) (named, bool)) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		if fsm != nil && fsm.InProgress(c) {
			return handleWithSummary(c, sessionName, start, func() error { return fsm.ManagerHandler(c) })
		}
		for _, resolve := range resolvers {
			if n, ok := resolve(c); ok {
				return handleWithSummary(c, n.name, start, func() error { return n.h(c) })
			}
		}
		logHandlerSummary(c, skipName, start, "skip", nil)
		return nil
	}
}

func fixed(name string, h tele.HandlerFunc) func(tele.Context) (named, bool) {
	return func(tele.Context) (named, bool) { return named{name, h}, h != nil }
}

// TextRoutes routes text, documents and opts.Media. An open session always
// wins; text then tries registry commands and aliases and finally
// opts.UnknownText.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	var text []func(tele.Context) (named, bool)
	if reg != nil {
		text = append(text, func(c tele.Context) (named, bool) {
			key, cmd, ok := reg.LookupCommand(c.Text())
			return named{normalizeHandlerName(key), cmd.Handler}, ok && cmd.Handler != nil
		})
	}
	text = append(text, fixed("unknown_text", opts.UnknownText))

	routes := []tg.Route{
		{Endpoint: tele.OnText, Handler: sessionFirst(fsm, "fsm", "unknown_text", text...)},
		{Endpoint: tele.OnDocument, Handler: sessionFirst(fsm, "fsm_document", "unexpected_document",
			fixed("unexpected_document", opts.UnknownDocument))},
	}
	media := sessionFirst(fsm, "fsm_media", "unexpected_media")
	for _, endpoint := range opts.Media {
		routes = append(routes, tg.Route{Endpoint: endpoint, Handler: media})
	}
	return routes
}
