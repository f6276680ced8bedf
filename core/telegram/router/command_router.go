package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/lumiabot/core/logger"
	tg "github.com/m3rciful/lumiabot/core/telegram"
	"github.com/m3rciful/lumiabot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	Access middleware.AccessOptions
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Role checks run before the handler summary so rejected calls are logged
// under the command name.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		guarded := middleware.RequireRole(def.Role, opts.Access)(def.Handler)
		h := func(c tele.Context) error {
			return handleWithSummary(c, name, time.Now(), func() error {
				return guarded(c)
			})
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  h,
		})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.Info(context.Background(), "tg.wire", "complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
