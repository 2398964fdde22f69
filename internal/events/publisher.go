package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher fans domain events out to a Store. By default Emit is
// synchronous; WithAsyncBuffer switches to a buffered channel drained by a
// background goroutine, trading delivery guarantees for latency. Events are
// observability output, never load-bearing for correctness: a full buffer
// drops rather than blocks, and a store failure is logged rather than
// surfaced to a caller whose mutation has already committed.
type Publisher struct {
	store  Store
	logger *slog.Logger

	inbox chan Event
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// WithLogger sets the logger used to report dropped or failed events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher builds a publisher over the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit publishes an event. Missing timestamps are filled with now so
// subscribers always see when the action happened. Failures are logged, not
// returned: by the time an event fires the operation it describes has
// already happened.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		if err := p.store.Append(ctx, event); err != nil {
			p.logger.Error("failed to append event", "action", event.Action, "error", err)
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("event buffer full, dropping event", "action", event.Action)
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to append event", "action", event.Action, "error", err)
		}
	}
}

// Close stops the async worker after draining buffered events. Safe to call
// on a synchronous publisher and safe to call twice.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
