// Package cycle expands a phase template into per-day mood assignments.
//
// The planner is pure: it never touches storage. Callers persist the
// resulting plan in one transaction (see ports.EntryStore.ApplyMoods).
package cycle

import (
	"fmt"

	"moodcal/internal/core"
)

// RepeatCycles is the number of consecutive cycles written when a
// request asks for repetition.
const RepeatCycles = 3

// MaxLength bounds cycle_length to keep a single request reasonable.
const MaxLength = 366

// Request describes one cycle application.
type Request struct {
	PersonID int64              `json:"person_id"`
	Start    core.Date          `json:"start_date"`
	Length   int                `json:"cycle_length"`
	Template core.CycleTemplate `json:"template"`
	Repeat   bool               `json:"repeat"`
}

// Result reports what a cycle application wrote.
type Result struct {
	PersonID    int64             `json:"person_id"`
	Span        int               `json:"span"`
	Dates       []core.Date       `json:"dates"`
	Assignments []core.Assignment `json:"assignments"`
}

// AppliedDays is the number of days that received a mood.
func (r Result) AppliedDays() int {
	return len(r.Dates)
}

func (r Request) Validate() error {
	if r.PersonID <= 0 {
		return core.NewValidationError("person_id", "person id must be positive")
	}
	if err := r.Start.Validate(); err != nil {
		return core.NewValidationError("start_date", "start date is required")
	}
	if r.Length <= 0 {
		return core.NewValidationError("cycle_length", fmt.Sprintf("cycle length must be positive, got %d", r.Length))
	}
	if r.Length > MaxLength {
		return core.NewValidationError("cycle_length", fmt.Sprintf("cycle length must be at most %d, got %d", MaxLength, r.Length))
	}
	return r.Template.Validate()
}

// Span is the number of consecutive days the request covers.
func (r Request) Span() int {
	if r.Repeat {
		return RepeatCycles * r.Length
	}
	return r.Length
}

// End is the last day covered by the request.
func (r Request) End() core.Date {
	return r.Start.AddDays(r.Span() - 1)
}

// CycleDay maps a day offset from the start to its 1-based cycle day.
func CycleDay(offset, length int) int {
	return offset%length + 1
}

// Plan returns the assignments for every matched day in ascending date
// order. When phases overlap the last matching phase wins. Days no
// phase covers are omitted and stay untouched in storage.
func Plan(r Request) ([]core.Assignment, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	span := r.Span()
	out := make([]core.Assignment, 0, span)
	for offset := 0; offset < span; offset++ {
		day := CycleDay(offset, r.Length)
		phase, ok := r.Template.PhaseFor(day)
		if !ok {
			continue
		}
		out = append(out, core.Assignment{
			Date:     r.Start.AddDays(offset),
			CycleDay: day,
			Phase:    phase.Name,
			Mood:     phase.Mood,
		})
	}
	return out, nil
}

// NewResult summarizes a persisted plan.
func NewResult(r Request, plan []core.Assignment) Result {
	dates := make([]core.Date, len(plan))
	for i, a := range plan {
		dates[i] = a.Date
	}
	return Result{
		PersonID:    r.PersonID,
		Span:        r.Span(),
		Dates:       dates,
		Assignments: plan,
	}
}
