package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moodcal/internal/amqp"
	"moodcal/internal/export"
	"moodcal/internal/log"
	"moodcal/internal/ports"
)

// ExportWorker keeps export targets in step with the store. Every change
// message triggers a full snapshot refresh; a periodic refresh covers
// messages that were lost.
type ExportWorker struct {
	store   ports.Store
	targets []export.Target

	// lastStart is when the newest successful refresh began reading the
	// store. Writes announced before it are already exported.
	mu        sync.Mutex
	lastStart time.Time
	now       func() time.Time
}

func NewExportWorker(store ports.Store, targets ...export.Target) *ExportWorker {
	return &ExportWorker{
		store:   store,
		targets: targets,
		now:     time.Now,
	}
}

// HandleChangeMessage processes a single change message from AMQP.
// Returning an error makes the consumer requeue the message.
func (w *ExportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldMessageID, msg.ID,
		"kind", msg.Kind,
		log.FieldPersonID, msg.PersonID,
		"dates", len(msg.Dates))

	w.mu.Lock()
	covered := !w.lastStart.IsZero() && msg.Timestamp.Before(w.lastStart)
	w.mu.Unlock()
	if covered {
		slog.DebugContext(ctx, "Change already exported, skipping", log.FieldMessageID, msg.ID)
		return nil
	}

	if err := w.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh exports for %s: %w", msg.ID, err)
	}
	return nil
}

// Refresh rewrites every target from the current store contents.
func (w *ExportWorker) Refresh(ctx context.Context) error {
	if len(w.targets) == 0 {
		slog.DebugContext(ctx, "No export targets configured")
		return nil
	}

	start := w.now()
	if err := export.Refresh(ctx, w.store, w.targets...); err != nil {
		return err
	}

	w.mu.Lock()
	if start.After(w.lastStart) {
		w.lastStart = start
	}
	w.mu.Unlock()

	slog.InfoContext(ctx, "Exports refreshed",
		log.FieldComponent, log.ComponentExport,
		log.FieldOperation, log.OpExport,
		"targets", len(w.targets),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Run refreshes immediately and then every interval until ctx is done.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid export interval %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Refresh(ctx); err != nil {
			slog.ErrorContext(ctx, "Periodic export failed",
				log.FieldComponent, log.ComponentWorker,
				log.FieldOperation, log.OpExport,
				log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
