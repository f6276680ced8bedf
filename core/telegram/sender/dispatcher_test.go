package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestDispatcher_RetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	dialErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	require.NoError(t, d.Enqueue(context.Background(), "post", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return dialErr
		}
		return nil
	}))
	d.Close()

	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcher_CountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "copy", "copyMessage", func() error {
		calls.Add(1)
		return tele.ErrBlockedByUser
	}))
	d.Close()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	err := d.Enqueue(context.Background(), "post", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDispatcher_EnqueueNil(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	defer d.Close()
	assert.Error(t, d.Enqueue(context.Background(), "post", "sendMessage", nil))
}

func TestDispatcher_CloseTwice(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2})
	d.Close()
	assert.NotPanics(t, d.Close)
}

func TestRedact(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:ABC-def_1/sendMessage": timeout`)
	assert.NotContains(t, redact(err), "ABC-def_1")
	assert.Contains(t, redact(err), "bot<redacted>")
}

func TestRetryClassification(t *testing.T) {
	dial := &net.OpError{Op: "dial", Err: errors.New("refused")}
	assert.True(t, Retryable(dial))
	assert.False(t, Retryable(tele.ErrBlockedByUser))
	assert.False(t, Retryable(context.Canceled))

	wait, ok := RetryAfter(tele.FloodError{RetryAfter: 3})
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, wait)
	_, ok = RetryAfter(dial)
	assert.False(t, ok)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "http_4xx", classifyError(tele.ErrBlockedByUser))
	assert.Equal(t, "http_5xx", classifyError(errors.New("telegram: internal error (502)")))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
}
