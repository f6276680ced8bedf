package middleware

import (
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/lumiabot/core/logger"
	"github.com/m3rciful/lumiabot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/lumiabot/core/telegram/helpers"
)

// UpdateKind classifies an update for logs and rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message == nil:
		return "other"
	case strings.HasPrefix(upd.Message.Text, "/"):
		return "command"
	case upd.Message.Document != nil:
		return "document"
	case upd.Message.Text != "":
		return "text"
	}
	return "media"
}

// LoggerMiddleware derives the correlation context for the update, stores it
// on the telebot context and writes a sampled debug receipt line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.NewUpdateContext(c)
		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", receiptAttrs(c, c.Update())...)
		}
		return next(c)
	}
}

// receiptAttrs describes the update without copying free text: flows carry
// product codes and broadcast bodies, so only commands and callback keys are
// logged verbatim.
func receiptAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	kind := UpdateKind(upd)
	attrs := []slog.Attr{slog.String("kind", kind)}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil && user.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
	}
	switch kind {
	case "callback":
		attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(callbacks.Key(upd.Callback), 64)))
	case "command":
		cmd, _, _ := strings.Cut(upd.Message.Text, " ")
		attrs = append(attrs, slog.String("command", logger.SanitizeLimit(cmd, 64)))
	case "document":
		attrs = append(attrs, slog.String("mime", upd.Message.Document.MIME))
	case "text":
		attrs = append(attrs, slog.Int("text_len", len([]rune(upd.Message.Text))))
	}
	return attrs
}
