package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueFull is returned by Relay.Publish when the buffer has no room left.
var ErrQueueFull = errors.New("events: relay queue full")

var errRelayClosed = errors.New("events: relay closed")

// RelayOptions tunes a Relay. Zero values fall back to the defaults.
type RelayOptions struct {
	Buffer  int
	Timeout time.Duration
	// OnError sees every event the downstream publisher rejected.
	OnError func(Event, error)
}

// Relay hands events to a downstream Publisher from a background goroutine,
// so Publish never waits on the broker. Events are delivered in the order
// they were accepted.
type Relay struct {
	next    Publisher
	queue   chan Event
	timeout time.Duration
	onError func(Event, error)

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewRelay(next Publisher, opts RelayOptions) *Relay {
	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.OnError == nil {
		opts.OnError = func(Event, error) {}
	}
	r := &Relay{
		next:    next,
		queue:   make(chan Event, opts.Buffer),
		timeout: opts.Timeout,
		onError: opts.OnError,
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Publish queues e and returns immediately. It fails only when the queue is
// full or the relay is closed.
func (r *Relay) Publish(_ context.Context, e Event) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return errRelayClosed
	}
	select {
	case r.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Relay) run() {
	defer close(r.done)
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.next.Publish(ctx, e); err != nil {
			r.onError(e, err)
		}
		cancel()
	}
}

// Close stops accepting events, delivers what is queued and closes the
// downstream publisher.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return r.next.Close()
}
