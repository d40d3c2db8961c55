package calendar

import (
	"context"
	"fmt"

	"moodcal/internal/core"
	"moodcal/internal/ports"
)

// Projection is the result of rendering one view around a reference
// date. Exactly one of Month, Week or Year is set.
type Projection struct {
	View      View          `json:"view"`
	Reference core.Date     `json:"reference"`
	Previous  core.Date     `json:"previous"`
	Next      core.Date     `json:"next"`
	Persons   []core.Person `json:"persons"`
	Month     *MonthGrid    `json:"month,omitempty"`
	Week      *WeekGrid     `json:"week,omitempty"`
	Year      *YearHeatmap  `json:"year,omitempty"`
}

type store interface {
	ports.PersonStore
	ports.EntryStore
}

// Projector loads the entries a view needs and lays them out. It holds
// no view state; every call names its reference date and view.
type Projector struct {
	store store
	today func() core.Date
}

func NewProjector(s store) *Projector {
	return &Projector{store: s, today: core.Today}
}

// WithClock overrides the "today" marker, mainly for tests.
func (p *Projector) WithClock(today func() core.Date) *Projector {
	p.today = today
	return p
}

// Project renders view around ref.
func (p *Projector) Project(ctx context.Context, ref core.Date, view View) (Projection, error) {
	if err := ref.Validate(); err != nil {
		return Projection{}, err
	}
	stepper, ok := steppers[view]
	if !ok {
		return Projection{}, core.NewValidationError("view", fmt.Sprintf("unknown view %q", view))
	}

	from, to := Bounds(ref, view)
	persons, entries, err := p.load(ctx, core.EntryFilter{From: from, To: to})
	if err != nil {
		return Projection{}, err
	}
	idx := NewEntryIndex(entries, persons)

	out := Projection{
		View:      view,
		Reference: ref,
		Previous:  stepper.Step(ref, -1),
		Next:      stepper.Step(ref, 1),
		Persons:   persons,
	}
	switch view {
	case ViewMonth:
		g := BuildMonth(ref, idx, p.today())
		out.Month = &g
	case ViewWeek:
		g := BuildWeek(ref, idx, p.today())
		out.Week = &g
	case ViewYear:
		h := BuildYear(ref.Year(), registeredOnly(entries, persons), idx)
		out.Year = &h
	}
	return out, nil
}

// Bounds returns the first and last date a view around ref displays.
func Bounds(ref core.Date, view View) (core.Date, core.Date) {
	switch view {
	case ViewWeek:
		start := WeekStart(ref)
		return start, start.AddDays(6)
	case ViewYear:
		return core.NewDate(ref.Year(), 1, 1), core.NewDate(ref.Year(), 12, 31)
	default:
		return core.NewDate(ref.Year(), ref.Month(), 1),
			core.NewDate(ref.Year(), ref.Month(), core.DaysIn(ref.Year(), ref.Month()))
	}
}

func (p *Projector) load(ctx context.Context, filter core.EntryFilter) ([]core.Person, []core.MoodEntry, error) {
	persons, err := p.store.ListPersons(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load persons: %w", err)
	}
	entries, err := p.store.ListEntries(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("load entries: %w", err)
	}
	return persons, entries, nil
}

func registeredOnly(entries []core.MoodEntry, persons []core.Person) []core.MoodEntry {
	ids := make(map[int64]bool, len(persons))
	for _, p := range persons {
		ids[p.ID] = true
	}
	out := make([]core.MoodEntry, 0, len(entries))
	for _, e := range entries {
		if ids[e.PersonID] {
			out = append(out, e)
		}
	}
	return out
}
