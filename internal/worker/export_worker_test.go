package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodcal/internal/amqp"
	"moodcal/internal/core"
	"moodcal/internal/export"
	"moodcal/internal/storage/memory"
)

type captureTarget struct {
	mu    sync.Mutex
	calls int
	rows  []export.Row
	err   error
}

func (c *captureTarget) Name() string { return "capture" }

func (c *captureTarget) Export(_ context.Context, rows []export.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.rows = rows
	return c.err
}

func (c *captureTarget) snapshot() (int, []export.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.rows
}

func TestExportWorker_HandleChangeMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p, err := store.CreatePerson(ctx, core.Person{Name: "Ann", Color: "#fff"})
	require.NoError(t, err)
	_, err = store.UpsertEntry(ctx, core.EntryPatch{Date: core.NewDate(2024, 5, 1), PersonID: p.ID, Mood: core.StringPtr("Happy")})
	require.NoError(t, err)

	target := &captureTarget{}
	w := NewExportWorker(store, target)

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	msg := amqp.NewChangeMessage(amqp.KindEntryUpserted, p.ID, core.NewDate(2024, 5, 1))
	msg.Timestamp = clock.Add(-time.Minute)
	require.NoError(t, w.HandleChangeMessage(ctx, msg))

	calls, rows := target.snapshot()
	assert.Equal(t, 1, calls)
	require.Len(t, rows, 1)
	assert.Equal(t, "Happy", rows[0].Mood)

	// Older than the refresh that just ran: nothing to do.
	require.NoError(t, w.HandleChangeMessage(ctx, msg))
	calls, _ = target.snapshot()
	assert.Equal(t, 1, calls)

	newer := amqp.NewChangeMessage(amqp.KindPersonDeleted, p.ID)
	newer.Timestamp = clock.Add(time.Minute)
	require.NoError(t, w.HandleChangeMessage(ctx, newer))
	calls, _ = target.snapshot()
	assert.Equal(t, 2, calls)
}

func TestExportWorker_FailureRequeues(t *testing.T) {
	target := &captureTarget{err: errors.New("quota exceeded")}
	w := NewExportWorker(memory.New(), target)

	err := w.HandleChangeMessage(context.Background(), amqp.NewChangeMessage(amqp.KindEntryDeleted, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	// A failed refresh does not mark later messages as covered.
	target.err = nil
	require.NoError(t, w.HandleChangeMessage(context.Background(), amqp.NewChangeMessage(amqp.KindEntryDeleted, 1)))
	calls, _ := target.snapshot()
	assert.Equal(t, 2, calls)
}

func TestExportWorker_NoTargets(t *testing.T) {
	w := NewExportWorker(memory.New())
	assert.NoError(t, w.HandleChangeMessage(context.Background(), amqp.NewChangeMessage(amqp.KindPersonSaved, 1)))
}

func TestExportWorker_Run(t *testing.T) {
	target := &captureTarget{}
	w := NewExportWorker(memory.New(), target)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 10*time.Millisecond) }()

	assert.Eventually(t, func() bool {
		calls, _ := target.snapshot()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	assert.Error(t, w.Run(context.Background(), 0))
}
