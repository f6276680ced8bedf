package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/lumiabot/core/logger"
	tghelpers "github.com/m3rciful/lumiabot/core/telegram/helpers"
)

// Recover turns a handler panic into an error log so one bad update cannot
// stop the poller. onPanic, when set, answers the user; its error is ignored.
func Recover(onPanic tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
					slog.String("err", fmt.Sprint(r)),
					slog.String("stack", string(debug.Stack())),
				)
				if onPanic != nil {
					_ = onPanic(c)
				}
				err = nil
			}()
			return next(c)
		}
	}
}
