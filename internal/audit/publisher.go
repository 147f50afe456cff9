package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher buffers events onto a channel so request handling never blocks on
// audit persistence. A dropped event is logged, not an error: availability of
// the registration path wins over a complete trail.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher builds a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit enqueues an event, stamping the timestamp when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"name", event.Name,
		)
	}
}

// Worker consumes audit events from the publisher and persists them.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

// NewWorker builds a worker draining the publisher into the store.
func NewWorker(store Store, publisher *Publisher, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: publisher.inbox, logger: logger}
}

// Run persists events until the context is cancelled. Store failures are
// logged and processing continues; the trail stays best-effort.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "append audit event failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
