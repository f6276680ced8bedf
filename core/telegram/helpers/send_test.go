package helpers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/lumiabot/core/telegram/sender"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAsync_SyncWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	boom := errors.New("boom")
	err := SendAsync(context.Background(), "post", "sendMessage", func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestSendAsync_QueuesOnDispatcher(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1, QueueSize: 4})
	SetDispatcher(d)
	t.Cleanup(func() {
		SetDispatcher(nil)
		d.Close()
	})

	var wg sync.WaitGroup
	wg.Add(1)
	err := SendAsync(context.Background(), "post", "sendMessage", func() error {
		wg.Done()
		return nil
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job not executed")
	}
}

func TestSendAsync_FallbackWhenClosed(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	d.Close()
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	ran := false
	require.NoError(t, SendAsync(context.Background(), "post", "sendMessage", func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}
