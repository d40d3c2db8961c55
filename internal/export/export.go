// Package export renders mood entries as flat rows and writes them to
// CSV files or a Google Sheet.
package export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"moodcal/internal/core"
	"moodcal/internal/ports"
)

// Header is the column layout shared by every target.
var Header = []string{"date", "person_id", "person", "color", "mood", "notes"}

// Row is one mood entry joined with its person.
type Row struct {
	Date     core.Date
	PersonID int64
	Person   string
	Color    string
	Mood     string
	Notes    string
}

func (r Row) Strings() []string {
	return []string{
		r.Date.String(),
		strconv.FormatInt(r.PersonID, 10),
		r.Person,
		r.Color,
		r.Mood,
		r.Notes,
	}
}

// Rows joins entries with their persons, ordered by date then person id.
// Entries of unknown persons are skipped.
func Rows(persons []core.Person, entries []core.MoodEntry) []Row {
	byID := make(map[int64]core.Person, len(persons))
	for _, p := range persons {
		byID[p.ID] = p
	}

	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		p, ok := byID[e.PersonID]
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Date:     e.Date,
			PersonID: e.PersonID,
			Person:   p.Name,
			Color:    p.Color,
			Mood:     e.Mood,
			Notes:    e.Notes,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].PersonID < rows[j].PersonID
	})
	return rows
}

// Target receives a full snapshot of rows.
type Target interface {
	Name() string
	Export(ctx context.Context, rows []Row) error
}

// Load reads a snapshot from the store.
func Load(ctx context.Context, store ports.Store, filter core.EntryFilter) ([]Row, error) {
	persons, err := store.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	entries, err := store.ListEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return Rows(persons, entries), nil
}

// Refresh writes the current snapshot to every target. A failing target
// does not stop the others; their errors are joined.
func Refresh(ctx context.Context, store ports.Store, targets ...Target) error {
	if len(targets) == 0 {
		return nil
	}
	rows, err := Load(ctx, store, core.EntryFilter{})
	if err != nil {
		return err
	}

	var errs []error
	for _, t := range targets {
		if err := t.Export(ctx, rows); err != nil {
			errs = append(errs, fmt.Errorf("export to %s: %w", t.Name(), err))
		}
	}
	return errors.Join(errs...)
}
