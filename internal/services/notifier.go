package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"moodcal/internal/amqp"
	"moodcal/internal/log"
	"moodcal/internal/metrics"
)

// Publisher announces committed writes. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg *amqp.ChangeMessage) error
}

// Notifier fans committed writes out to local listeners and the
// optional publisher. Publishing failures never fail the write.
type Notifier struct {
	publisher Publisher
	observer  metrics.Observer

	mu        sync.RWMutex
	listeners []func(*amqp.ChangeMessage)
}

// NewNotifier accepts a nil publisher and a nil observer.
func NewNotifier(publisher Publisher, observer metrics.Observer) *Notifier {
	if observer == nil {
		observer = metrics.Nop{}
	}
	return &Notifier{publisher: publisher, observer: observer}
}

// OnChange registers fn to run synchronously after every committed write.
func (n *Notifier) OnChange(fn func(*amqp.ChangeMessage)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

func (n *Notifier) notify(ctx context.Context, msg *amqp.ChangeMessage) {
	n.mu.RLock()
	listeners := n.listeners
	n.mu.RUnlock()
	for _, fn := range listeners {
		fn(msg)
	}

	if n.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping change message", "kind", msg.Kind)
		return
	}
	if err := n.publisher.Publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			log.FieldMessageID, msg.ID,
			"kind", msg.Kind,
			log.FieldPersonID, msg.PersonID,
			log.FieldError, err)
	}
}

// track times an operation; call the result with the operation's error.
func (n *Notifier) track(op string) func(*error) {
	start := time.Now()
	return func(err *error) {
		n.observer.RecordOperation(op, time.Since(start), *err)
	}
}
