// Package logger is the structured slog setup shared by the bot: one flat
// line per event with component and event keys, correlation ids pulled from
// the context, and an asynchronous writer.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/lumiabot/core/buildinfo"
	coreconfig "github.com/m3rciful/lumiabot/core/config"
)

var (
	initOnce sync.Once
	base     atomic.Pointer[slog.Logger]
	levelVar slog.LevelVar

	debugSampler = newRatioSampler(1, 50)
	traceAll     atomic.Bool

	sinkMu      sync.Mutex
	sinkWriter  *asyncWriter
	sinkClosers []io.Closer
)

// InitLogger installs the process logger described by cfg. Calls after the
// first are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}
		levelVar.Set(parseLevel(lc.Level))
		debugSampler.Set(debugRatio(lc.DebugSample))
		traceAll.Store(envTruthy("TRACE") || envTruthy("LOG_TRACE"))

		outputs, closers, err := openOutputs(lc)
		if err != nil {
			initErr = err
			return
		}
		w := newAsyncWriter(outputs, 64*1024)

		sinkMu.Lock()
		sinkWriter, sinkClosers = w, closers
		sinkMu.Unlock()

		l := slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   w,
			format:   selectFormat(lc),
			keyOrder: keyOrder(lc.KeysOrder),
		}))
		base.Store(l)
		slog.SetDefault(l)

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build", buildinfo.String()),
			slog.String("cfg_profile", lc.Profile),
		)
	})
	return initErr
}

// Shutdown flushes queued lines and closes file sinks. It is safe to call
// more than once.
func Shutdown() error {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	var errs []error
	if sinkWriter != nil {
		errs = append(errs, sinkWriter.Flush(), sinkWriter.Close())
		sinkWriter = nil
	}
	for _, c := range sinkClosers {
		errs = append(errs, c.Close())
	}
	sinkClosers = nil
	return errors.Join(errs...)
}

// Base returns the process logger, nil before InitLogger.
func Base() *slog.Logger {
	return base.Load()
}

func selectFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if p := strings.ToLower(lc.Profile); p == "dev" || p == "debug" {
		return formatKV
	}
	return formatJSON
}

func keyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return append([]string(nil), defaultKeyOrder...)
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

// debugRatio defaults to 1/50 when unset; "0" disables sampling entirely.
func debugRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, 50
	}
	return parseRatio(raw)
}

func openOutputs(lc coreconfig.LoggingConfig) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.File)
	if dir == "" || name == "" {
		return writers, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create log dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: open log file %s: %w", path, err)
	}
	return append(writers, f), []io.Closer{f}, nil
}

func envTruthy(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// LogEvent writes one event through logg, falling back to the context or
// base logger. Without any logger it does nothing.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns the base logger tagged with component name.
func Component(name string) *slog.Logger {
	l := Base()
	if l == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return l
	}
	return l.With("component", name)
}

func emit(ctx context.Context, component string, level slog.Level, name string, attrs []slog.Attr) {
	logg := FromContext(ctx)
	if logg == nil {
		return
	}
	if component = strings.TrimSpace(component); component != "" {
		logg = logg.With("component", component)
	}
	LogEvent(ctx, logg, level, name, attrs...)
}

func Debug(ctx context.Context, component, name string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelDebug, name, attrs)
}

func Info(ctx context.Context, component, name string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelInfo, name, attrs)
}

func Warn(ctx context.Context, component, name string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelWarn, name, attrs)
}

func Error(ctx context.Context, component, name string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelError, name, attrs)
}

// ShouldSampleDebug reports whether a high-volume debug event should be
// written. TRACE=1 lets everything through.
func ShouldSampleDebug() bool {
	return traceAll.Load() || debugSampler.Allow()
}
