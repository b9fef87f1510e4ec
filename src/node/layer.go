package node

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultInboxSize is the number of transport deliveries a Layer queues
// before Deliver blocks.
const DefaultInboxSize = 256

var (
	// ErrLayerShutdown is returned for tasks submitted to, or still queued
	// on, a disposed Layer.
	ErrLayerShutdown = errors.New("node layer shut down")
)

// Task is a unit of work executed on a Layer. ctx identifies the layer and
// carries the acting player, if any.
type Task func(ctx context.Context) error

type layerKey struct{}

type playerKey struct{}

// WithPlayer returns a copy of ctx naming the player on whose behalf work is
// done.
func WithPlayer(ctx context.Context, playerName string) context.Context {
	return context.WithValue(ctx, playerKey{}, playerName)
}

// PlayerFromContext returns the player set by WithPlayer, or "".
func PlayerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(playerKey{}).(string)
	return name
}

type layerTask struct {
	ctx    context.Context
	task   Task
	future *Future
	slot   bool
}

// Layer is the single goroutine on which all the state of a node is read and
// written. Tasks run one at a time in submission order.
type Layer struct {
	logger *logrus.Entry

	lock     sync.Mutex
	queue    []*layerTask
	shutdown bool

	wakeCh  chan struct{}
	slots   chan struct{}
	closeCh chan struct{}
	doneCh  chan struct{}
}

// NewLayer starts a Layer. inboxSize bounds the number of pending Deliver
// tasks.
func NewLayer(inboxSize int, logger *logrus.Entry) *Layer {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	l := &Layer{
		logger:  logger,
		wakeCh:  make(chan struct{}, 1),
		slots:   make(chan struct{}, inboxSize),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	go l.run()

	return l
}

// IsNodeLayer reports whether ctx belongs to a task running on this layer.
// It never blocks.
func (l *Layer) IsNodeLayer(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(layerKey{}).(*Layer)
	return owner == l
}

// AsyncExec queues task and returns immediately. The acting player of ctx is
// carried over to the task.
func (l *Layer) AsyncExec(ctx context.Context, task Task) *Future {
	return l.enqueue(ctx, task, false)
}

// SyncExec runs task and returns its error. When called from the layer
// itself, task runs in place; otherwise the caller blocks until task
// completes or ctx is done.
func (l *Layer) SyncExec(ctx context.Context, task Task) error {
	if l.IsNodeLayer(ctx) {
		return l.execute(ctx, task)
	}
	return l.AsyncExec(ctx, task).Wait(ctx)
}

// Deliver queues a task on behalf of a transport. It blocks while the inbox
// is full, and returns ErrLayerShutdown if the task was rejected.
func (l *Layer) Deliver(ctx context.Context, task Task) error {
	select {
	case l.slots <- struct{}{}:
	case <-l.closeCh:
		return ErrLayerShutdown
	case <-ctx.Done():
		return ctx.Err()
	}

	f := l.enqueue(ctx, task, true)

	select {
	case <-f.Done():
		if f.Error() == ErrLayerShutdown {
			return ErrLayerShutdown
		}
	default:
	}

	return nil
}

// Dispose stops the layer. The task currently running, if any, completes;
// queued and future tasks are rejected with ErrLayerShutdown. Dispose may be
// called from the layer itself and does not wait.
func (l *Layer) Dispose() {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.shutdown {
		return
	}
	l.shutdown = true
	close(l.closeCh)
	l.wake()
}

// Done returns a channel closed once the layer goroutine has exited.
func (l *Layer) Done() <-chan struct{} {
	return l.doneCh
}

func (l *Layer) enqueue(ctx context.Context, task Task, slot bool) *Future {
	f := newFuture()

	l.lock.Lock()
	if l.shutdown {
		l.lock.Unlock()
		if slot {
			<-l.slots
		}
		f.resolve(ErrLayerShutdown)
		return f
	}

	l.queue = append(l.queue, &layerTask{
		ctx:    l.taskContext(ctx),
		task:   task,
		future: f,
		slot:   slot,
	})
	l.wake()
	l.lock.Unlock()

	return f
}

// taskContext detaches the task from the cancellation of the submitter but
// keeps its player.
func (l *Layer) taskContext(ctx context.Context) context.Context {
	tctx := context.WithValue(context.Background(), layerKey{}, l)
	if player := PlayerFromContext(ctx); player != "" {
		tctx = WithPlayer(tctx, player)
	}
	return tctx
}

// wake must be called with the lock held.
func (l *Layer) wake() {
	select {
	case l.wakeCh <- struct{}{}:
	default:
	}
}

func (l *Layer) run() {
	defer close(l.doneCh)

	for {
		l.lock.Lock()
		for len(l.queue) == 0 && !l.shutdown {
			l.lock.Unlock()
			<-l.wakeCh
			l.lock.Lock()
		}

		if l.shutdown {
			pending := l.queue
			l.queue = nil
			l.lock.Unlock()

			for _, t := range pending {
				l.finish(t, ErrLayerShutdown)
			}
			if len(pending) > 0 {
				l.logger.WithField("tasks", len(pending)).Debug("Rejected queued tasks")
			}
			return
		}

		t := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.lock.Unlock()

		l.finish(t, l.execute(t.ctx, t.task))
	}
}

func (l *Layer) finish(t *layerTask, err error) {
	if t.slot {
		<-l.slots
	}
	t.future.resolve(err)
}

func (l *Layer) execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.WithField("panic", r).Error("Node layer task panicked")
			err = fmt.Errorf("node layer task panicked: %v", r)
		}
	}()
	return task(ctx)
}

// assertNodeLayer panics if ctx does not belong to a task of l.
func (l *Layer) assertNodeLayer(ctx context.Context) {
	if !l.IsNodeLayer(ctx) {
		panic("node state accessed outside of the node layer")
	}
}
