package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	keyRID ctxKey = iota
	keyUpdateID
	keyUserID
	keyChatID
	keyLogger
	keyHandler
	keyState
)

func withValue[T comparable](ctx context.Context, key ctxKey, v T) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	var zero T
	if v == zero {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func valueFrom[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	if v, ok := ctx.Value(key).(T); ok {
		return v
	}
	return zero
}

// WithLogger stores log in ctx; FromContext returns it to deeper layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return withValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx, or the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l := valueFrom[*slog.Logger](ctx, keyLogger); l != nil {
		return l
	}
	return Base()
}

// WithRID attaches the update correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withValue(ctx, keyRID, rid)
}

func RIDFrom(ctx context.Context) string { return valueFrom[string](ctx, keyRID) }

// WithUpdateMeta attaches the update, user and chat ids. Zero ids are skipped.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	ctx = withValue(ctx, keyUpdateID, updateID)
	ctx = withValue(ctx, keyUserID, userID)
	return withValue(ctx, keyChatID, chatID)
}

func UpdateIDFrom(ctx context.Context) int   { return valueFrom[int](ctx, keyUpdateID) }
func UserIDFrom(ctx context.Context) int64   { return valueFrom[int64](ctx, keyUserID) }
func ChatIDFrom(ctx context.Context) int64   { return valueFrom[int64](ctx, keyChatID) }
func HandlerFrom(ctx context.Context) string { return valueFrom[string](ctx, keyHandler) }

// WithHandler names the route handling the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	return withValue(ctx, keyHandler, handler)
}

// WithState records the conversation state the update is dispatched in.
func WithState(ctx context.Context, state string) context.Context {
	return withValue(ctx, keyState, state)
}

func StateFrom(ctx context.Context) string { return valueFrom[string](ctx, keyState) }

// contextFields copies correlation values into fields without overriding
// attributes logged explicitly.
func contextFields(ctx context.Context, fields map[string]any) {
	if ctx == nil {
		return
	}
	set := func(key string, v any, present bool) {
		if !present {
			return
		}
		if _, ok := fields[key]; !ok {
			fields[key] = v
		}
	}
	rid := RIDFrom(ctx)
	set("rid", rid, rid != "")
	uid := UserIDFrom(ctx)
	set("user_id", uid, uid != 0)
	upd := UpdateIDFrom(ctx)
	set("update_id", upd, upd != 0)
	cid := ChatIDFrom(ctx)
	set("chat_id", cid, cid != 0)
	h := HandlerFrom(ctx)
	set("handler", h, h != "")
	st := StateFrom(ctx)
	set("state", st, st != "")
}
