package ports

import (
	"context"

	"moodcal/internal/core"
)

// Ports for persistence adapters.
type (
	PersonStore interface {
		// CreatePerson stores p and returns it with its assigned ID.
		CreatePerson(ctx context.Context, p core.Person) (core.Person, error)
		GetPerson(ctx context.Context, id int64) (core.Person, error)
		// ListPersons returns persons ordered by ID.
		ListPersons(ctx context.Context) ([]core.Person, error)
		// UpdatePerson replaces name, color and moods wholesale.
		UpdatePerson(ctx context.Context, p core.Person) error
		// DeletePerson removes the person and every entry they own.
		DeletePerson(ctx context.Context, id int64) error
	}

	EntryStore interface {
		// UpsertEntry merges patch onto the stored entry atomically.
		UpsertEntry(ctx context.Context, patch core.EntryPatch) (core.MoodEntry, error)
		GetEntry(ctx context.Context, date core.Date, personID int64) (core.MoodEntry, error)
		DeleteEntry(ctx context.Context, date core.Date, personID int64) error
		// ListEntries returns matching entries ordered by date then person.
		ListEntries(ctx context.Context, filter core.EntryFilter) ([]core.MoodEntry, error)
		// ApplyMoods writes every assignment's mood for personID in one
		// transaction, preserving notes. Nothing is written on error.
		ApplyMoods(ctx context.Context, personID int64, assignments []core.Assignment) error
	}

	// Store is the full persistence surface used by services.
	Store interface {
		PersonStore
		EntryStore
		Ping(ctx context.Context) error
		Close() error
	}
)
