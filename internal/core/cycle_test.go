package core

import "testing"

func TestCycleTemplateValidate(t *testing.T) {
	good := CycleTemplate{Phases: []CyclePhase{{Name: "Flow", StartDay: 1, EndDay: 5, Mood: "Flow"}}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []CycleTemplate{
		{},
		{Phases: []CyclePhase{{StartDay: 0, EndDay: 3, Mood: "x"}}},
		{Phases: []CyclePhase{{StartDay: 5, EndDay: 3, Mood: "x"}}},
		{Phases: []CyclePhase{{StartDay: 1, EndDay: 3, Mood: ""}}},
	}
	for i, b := range bads {
		if err := b.Validate(); !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestPhaseForLastMatchWins(t *testing.T) {
	tmpl := CycleTemplate{Phases: []CyclePhase{
		{Name: "wide", StartDay: 1, EndDay: 10, Mood: "A"},
		{Name: "narrow", StartDay: 4, EndDay: 6, Mood: "B"},
	}}

	cases := map[int]string{1: "A", 4: "B", 6: "B", 7: "A"}
	for day, want := range cases {
		p, ok := tmpl.PhaseFor(day)
		if !ok || p.Mood != want {
			t.Fatalf("day %d: got %q ok=%v, want %q", day, p.Mood, ok, want)
		}
	}
	if _, ok := tmpl.PhaseFor(11); ok {
		t.Fatalf("day 11 should be unmatched")
	}
}

func TestCycleTemplateMoods(t *testing.T) {
	tmpl := CycleTemplate{Phases: []CyclePhase{
		{StartDay: 1, EndDay: 2, Mood: "Normal"},
		{StartDay: 3, EndDay: 4, Mood: "PMS"},
		{StartDay: 5, EndDay: 6, Mood: "Normal"},
	}}
	got := tmpl.Moods()
	if len(got) != 2 || got[0] != "Normal" || got[1] != "PMS" {
		t.Fatalf("got %v", got)
	}
}
