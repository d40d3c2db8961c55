// Package calendar projects stored entries onto month, week and year
// grids.
//
// This file implements calendar-correct navigation as one Stepper
// strategy per view.
package calendar

import (
	"fmt"
	"strings"

	"moodcal/internal/core"
)

// View is a calendar granularity.
type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewYear  View = "year"
)

// ParseView accepts a view name case-insensitively.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := steppers[v]; !ok {
		return "", core.NewValidationError("view", fmt.Sprintf("unknown view %q: must be month, week or year", s))
	}
	return v, nil
}

// Stepper moves a reference date by whole view units.
type Stepper interface {
	Step(ref core.Date, steps int) core.Date
}

// MonthStepper keeps the day of month, clamped to the target month's
// last day, so Jan 31 steps to Feb 29 (leap year) and then Mar 29.
type MonthStepper struct{}

func (MonthStepper) Step(ref core.Date, steps int) core.Date {
	// time.AddDate would roll Jan 31 + 1 month over to early March.
	idx := ref.Year()*12 + (ref.Month() - 1) + steps
	year, month := idx/12, idx%12+1
	if idx < 0 && idx%12 != 0 {
		year, month = idx/12-1, idx%12+13
	}
	day := ref.Day()
	if last := core.DaysIn(year, month); day > last {
		day = last
	}
	return core.NewDate(year, month, day)
}

// WeekStepper moves by seven days.
type WeekStepper struct{}

func (WeekStepper) Step(ref core.Date, steps int) core.Date {
	return ref.AddDays(7 * steps)
}

// YearStepper keeps month and day, clamping Feb 29 to Feb 28.
type YearStepper struct{}

func (YearStepper) Step(ref core.Date, steps int) core.Date {
	year := ref.Year() + steps
	day := ref.Day()
	if last := core.DaysIn(year, ref.Month()); day > last {
		day = last
	}
	return core.NewDate(year, ref.Month(), day)
}

var steppers = map[View]Stepper{
	ViewMonth: MonthStepper{},
	ViewWeek:  WeekStepper{},
	ViewYear:  YearStepper{},
}

// Navigate moves ref by steps units of view; negative steps go back.
func Navigate(ref core.Date, view View, steps int) (core.Date, error) {
	s, ok := steppers[view]
	if !ok {
		return core.Date{}, core.NewValidationError("view", fmt.Sprintf("unknown view %q", view))
	}
	if err := ref.Validate(); err != nil {
		return core.Date{}, err
	}
	return s.Step(ref, steps), nil
}

// WeekStart returns the Monday of ref's ISO week.
func WeekStart(ref core.Date) core.Date {
	return ref.AddDays(-ref.MondayIndex())
}
