package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands audit events to a sink. In sync mode Emit appends
// directly; with an async buffer Emit enqueues and a background goroutine
// drains, so request paths never block on the sink.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
	inbox  chan Event
	done   chan struct{}
}

type PublisherOption func(p *Publisher)

// WithAsyncBuffer switches the publisher to buffered async mode.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// WithLogger sets the logger used for sink failures in async mode.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit records an event. Async mode drops the event when the buffer is full
// rather than stalling the caller; audit loss is logged, never fatal.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.sink.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
	}
	return nil
}

// Close stops the async drain goroutine after flushing buffered events.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	close(p.inbox)
	<-p.done
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.sink.Append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed", "action", event.Action, "error", err)
		}
	}
}
