package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLayer(t *testing.T, inboxSize int) *Layer {
	l := NewLayer(inboxSize, common.NewTestEntry(t, common.TestLogLevel))
	t.Cleanup(func() {
		l.Dispose()
		<-l.Done()
	})
	return l
}

func TestLayer_SyncExecIsReentrant(t *testing.T) {
	l := newTestLayer(t, 0)

	assert.False(t, l.IsNodeLayer(context.Background()))

	ran := false
	err := l.SyncExec(context.Background(), func(ctx context.Context) error {
		assert.True(t, l.IsNodeLayer(ctx))

		// Running in place; queueing would deadlock.
		return l.SyncExec(ctx, func(ctx context.Context) error {
			ran = true
			return nil
		})
	})

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestLayer_SyncExecReportsTaskError(t *testing.T) {
	l := newTestLayer(t, 0)

	boom := errors.New("boom")
	err := l.SyncExec(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.Equal(t, boom, err)

	err = l.SyncExec(context.Background(), func(ctx context.Context) error {
		panic("kaboom")
	})
	assert.Error(t, err)

	// The layer survives a panicking task.
	assert.NoError(t, l.SyncExec(context.Background(), func(ctx context.Context) error {
		return nil
	}))
}

func TestLayer_SyncExecBlocksUntilCompletion(t *testing.T) {
	l := newTestLayer(t, 0)

	release := make(chan struct{})
	l.AsyncExec(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() {
		done <- l.SyncExec(context.Background(), func(ctx context.Context) error {
			return nil
		})
	}()

	select {
	case <-done:
		t.Fatalf("SyncExec returned before its task ran")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("SyncExec did not return")
	}
}

func TestLayer_TasksRunInOrder(t *testing.T) {
	l := newTestLayer(t, 0)

	var order []int
	var last *Future
	for i := 0; i < 100; i++ {
		i := i
		last = l.AsyncExec(context.Background(), func(ctx context.Context) error {
			order = append(order, i)
			return nil
		})
	}
	require.NoError(t, last.Error())

	require.Len(t, order, 100)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestLayer_PlayerIsCarried(t *testing.T) {
	l := newTestLayer(t, 0)

	var player string
	ctx := WithPlayer(context.Background(), "alice")
	err := l.AsyncExec(ctx, func(ctx context.Context) error {
		player = PlayerFromContext(ctx)
		return nil
	}).Error()

	require.NoError(t, err)
	assert.Equal(t, "alice", player)
}

func TestLayer_DisposeRejectsQueuedTasks(t *testing.T) {
	l := NewLayer(0, common.NewTestEntry(t, common.TestLogLevel))

	started := make(chan struct{})
	release := make(chan struct{})
	first := l.AsyncExec(context.Background(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	second := l.AsyncExec(context.Background(), func(ctx context.Context) error {
		t.Errorf("queued task should not run after Dispose")
		return nil
	})

	l.Dispose()
	close(release)

	assert.NoError(t, first.Error())
	assert.Equal(t, ErrLayerShutdown, second.Error())

	<-l.Done()

	assert.Equal(t, ErrLayerShutdown, l.AsyncExec(context.Background(), func(ctx context.Context) error {
		return nil
	}).Error())
	assert.Equal(t, ErrLayerShutdown, l.Deliver(context.Background(), func(ctx context.Context) error {
		return nil
	}))
	assert.Equal(t, ErrLayerShutdown, l.SyncExec(context.Background(), func(ctx context.Context) error {
		return nil
	}))
}

func TestLayer_DeliverIsBounded(t *testing.T) {
	l := newTestLayer(t, 1)

	release := make(chan struct{})
	l.AsyncExec(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})

	require.NoError(t, l.Deliver(context.Background(), func(ctx context.Context) error {
		return nil
	}))

	delivered := make(chan error, 1)
	go func() {
		delivered <- l.Deliver(context.Background(), func(ctx context.Context) error {
			return nil
		})
	}()

	select {
	case <-delivered:
		t.Fatalf("Deliver should block while the inbox is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-delivered:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Deliver did not return")
	}
}
