package logger

import (
	"log/slog"
	"strings"
)

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

func parseLevel(raw string) slog.Level {
	switch levelNames[strings.ToLower(strings.TrimSpace(raw))] {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func levelName(l slog.Level) string {
	if name, ok := levelNames[strings.ToLower(l.String())]; ok {
		return name
	}
	return strings.ToUpper(l.String())
}

// defaultKeyOrder puts correlation keys first, then the bot's domain keys.
// Keys not listed follow alphabetically.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"state",
	"next_state",
	"product_type",
	"product_code",
	"refs",
	"target_id",
	"channel",
	"recipients",
	"delivered",
	"failed",
	"remaining_ms",
	"request_id",
	"operation",
	"cb_key",
	"duration_ms",
	"count",
	"backend",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"pending_count",
}
