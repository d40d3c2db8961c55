package core

import (
	"fmt"
	"strings"
)

type (
	// CyclePhase labels cycle days StartDay..EndDay (1-based, inclusive).
	CyclePhase struct {
		Name     string `json:"name" yaml:"name"`
		StartDay int    `json:"start_day" yaml:"start"`
		EndDay   int    `json:"end_day" yaml:"end"`
		Mood     string `json:"mood" yaml:"mood"`
	}

	// CycleTemplate is an ordered list of phases. Phases may overlap and
	// need not cover the whole cycle.
	CycleTemplate struct {
		Name   string       `json:"name" yaml:"name"`
		Phases []CyclePhase `json:"phases" yaml:"phases"`
	}

	// Assignment is one day written by the cycle engine.
	Assignment struct {
		Date     Date   `json:"date"`
		CycleDay int    `json:"cycle_day"`
		Phase    string `json:"phase"`
		Mood     string `json:"mood"`
	}
)

func (p CyclePhase) Validate() error {
	if p.StartDay < 1 {
		return NewValidationError("phases", fmt.Sprintf("phase %q: start day must be at least 1", p.Name))
	}
	if p.EndDay < p.StartDay {
		return NewValidationError("phases", fmt.Sprintf("phase %q: end day %d before start day %d", p.Name, p.EndDay, p.StartDay))
	}
	if strings.TrimSpace(p.Mood) == "" {
		return NewValidationError("phases", fmt.Sprintf("phase %q: mood cannot be empty", p.Name))
	}
	return nil
}

// Covers reports whether the 1-based cycle day falls in the phase.
func (p CyclePhase) Covers(cycleDay int) bool {
	return cycleDay >= p.StartDay && cycleDay <= p.EndDay
}

func (t CycleTemplate) Validate() error {
	if len(t.Phases) == 0 {
		return NewValidationError("template", "template must contain at least one phase")
	}
	for _, p := range t.Phases {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PhaseFor returns the last phase covering cycleDay.
func (t CycleTemplate) PhaseFor(cycleDay int) (CyclePhase, bool) {
	for i := len(t.Phases) - 1; i >= 0; i-- {
		if t.Phases[i].Covers(cycleDay) {
			return t.Phases[i], true
		}
	}
	return CyclePhase{}, false
}

// Moods lists the distinct mood labels the template writes, in order.
func (t CycleTemplate) Moods() []string {
	seen := make(map[string]bool, len(t.Phases))
	var out []string
	for _, p := range t.Phases {
		if !seen[p.Mood] {
			seen[p.Mood] = true
			out = append(out, p.Mood)
		}
	}
	return out
}
