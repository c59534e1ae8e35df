package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("event bus is closed")

const defaultBufferSize = 100

// ErrorHandler is called for events that could not be delivered.
type ErrorHandler func(err error, attrs ...any)

// Bus fans events out to subscribers. It is safe for concurrent use.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscription
	closed      bool
	bufferSize  int
	onError     ErrorHandler
	nextID      atomic.Uint64
}

type subscription struct {
	id       string
	ch       chan Event
	filter   Filter
	cancel   context.CancelFunc
	received atomic.Int64
	dropped  atomic.Int64
}

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize sets the channel buffer used when Subscribe is called with
// a non-positive size.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithErrorHandler replaces the handler that reports dropped events.
func WithErrorHandler(h ErrorHandler) Option {
	return func(b *Bus) {
		if h != nil {
			b.onError = h
		}
	}
}

// NewBus creates an open bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[string]*subscription),
		bufferSize:  defaultBufferSize,
		onError: func(err error, attrs ...any) {
			slog.Default().Warn(err.Error(), attrs...)
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers e to every matching subscriber without blocking.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	for _, sub := range b.subscribers {
		if !sub.filter.Matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
			sub.received.Add(1)
		default:
			sub.dropped.Add(1)
			b.onError(fmt.Errorf("subscriber %s is full, event dropped", sub.id),
				"event_type", e.Type, "run_id", e.RunID, "dropped", sub.dropped.Load())
		}
	}
	return nil
}

// Subscribe returns a channel of matching events and a function that ends
// the subscription. The channel is closed when ctx is done, when the
// returned function is called or when the bus closes.
func (b *Bus) Subscribe(ctx context.Context, filter Filter, bufferSize int) (<-chan Event, func()) {
	if bufferSize <= 0 {
		bufferSize = b.bufferSize
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		id:     fmt.Sprintf("sub-%d-%d", time.Now().UnixNano(), b.nextID.Add(1)),
		ch:     make(chan Event, bufferSize),
		filter: filter,
		cancel: cancel,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subscribers[sub.id] = sub
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			b.remove(sub.id)
		})
	}
	go func() {
		<-subCtx.Done()
		unsubscribe()
	}()
	return sub.ch, unsubscribe
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close ends every subscription. It is safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, sub := range b.subscribers {
		sub.cancel()
		close(sub.ch)
		delete(b.subscribers, id)
	}
	return nil
}
