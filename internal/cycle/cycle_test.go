package cycle

import (
	"os"
	"path/filepath"
	"testing"

	"moodcal/internal/core"
)

func flowTemplate() core.CycleTemplate {
	return core.CycleTemplate{Phases: []core.CyclePhase{
		{Name: "Flow", StartDay: 1, EndDay: 5, Mood: "Flow"},
		{Name: "Ovulation", StartDay: 14, EndDay: 14, Mood: "Ovulation"},
		{Name: "PMT", StartDay: 20, EndDay: 28, Mood: "PMT"},
	}}
}

func byDate(plan []core.Assignment) map[string]core.Assignment {
	out := make(map[string]core.Assignment, len(plan))
	for _, a := range plan {
		out[a.Date.String()] = a
	}
	return out
}

func TestPlanSingleCycle(t *testing.T) {
	req := Request{PersonID: 1, Start: core.NewDate(2024, 1, 1), Length: 28, Template: flowTemplate()}
	plan, err := Plan(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Span() != 28 {
		t.Fatalf("span = %d, want 28", req.Span())
	}
	// 5 flow + 1 ovulation + 9 PMT days.
	if len(plan) != 15 {
		t.Fatalf("assignments = %d, want 15", len(plan))
	}

	got := byDate(plan)
	cases := []struct {
		date string
		mood string
	}{
		{"2024-01-01", "Flow"},
		{"2024-01-05", "Flow"},
		{"2024-01-14", "Ovulation"},
		{"2024-01-20", "PMT"},
		{"2024-01-28", "PMT"},
	}
	for _, tc := range cases {
		a, ok := got[tc.date]
		if !ok || a.Mood != tc.mood {
			t.Fatalf("%s: got %+v ok=%v, want %s", tc.date, a, ok, tc.mood)
		}
	}
	for _, untouched := range []string{"2024-01-06", "2024-01-13", "2024-01-19"} {
		if _, ok := got[untouched]; ok {
			t.Fatalf("%s should be untouched", untouched)
		}
	}
	if _, ok := got["2024-01-29"]; ok {
		t.Fatalf("day 29 is outside a single cycle")
	}
	if !req.End().Equal(core.NewDate(2024, 1, 28)) {
		t.Fatalf("end = %s", req.End())
	}
}

func TestPlanRepeat(t *testing.T) {
	req := Request{PersonID: 1, Start: core.NewDate(2024, 1, 1), Length: 28, Template: flowTemplate(), Repeat: true}
	plan, err := Plan(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Span() != 84 {
		t.Fatalf("span = %d, want 84", req.Span())
	}
	if len(plan) != 45 {
		t.Fatalf("assignments = %d, want 45", len(plan))
	}
	got := byDate(plan)
	a, ok := got["2024-01-29"]
	if !ok || a.Mood != "Flow" || a.CycleDay != 1 {
		t.Fatalf("2024-01-29 should restart the cycle with Flow, got %+v", a)
	}
	if last := plan[len(plan)-1]; !last.Date.Equal(core.NewDate(2024, 3, 24)) || last.CycleDay != 28 {
		t.Fatalf("unexpected last assignment %+v", last)
	}
	for i := 1; i < len(plan); i++ {
		if !plan[i-1].Date.Before(plan[i].Date) {
			t.Fatalf("plan not strictly ascending at %d", i)
		}
	}
}

func TestPlanOverlapLastMatchWins(t *testing.T) {
	req := Request{
		PersonID: 1,
		Start:    core.NewDate(2024, 1, 1),
		Length:   10,
		Template: core.CycleTemplate{Phases: []core.CyclePhase{
			{StartDay: 1, EndDay: 10, Mood: "Base"},
			{StartDay: 3, EndDay: 4, Mood: "Peak"},
		}},
	}
	plan, err := Plan(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 10 {
		t.Fatalf("every day matched, got %d", len(plan))
	}
	got := byDate(plan)
	if got["2024-01-03"].Mood != "Peak" || got["2024-01-02"].Mood != "Base" {
		t.Fatalf("overlap resolution wrong: %+v", plan)
	}
}

func TestRequestValidate(t *testing.T) {
	good := Request{PersonID: 1, Start: core.NewDate(2024, 1, 1), Length: 28, Template: flowTemplate()}

	tests := []struct {
		name   string
		mutate func(r *Request)
	}{
		{"zero length", func(r *Request) { r.Length = 0 }},
		{"negative length", func(r *Request) { r.Length = -3 }},
		{"too long", func(r *Request) { r.Length = MaxLength + 1 }},
		{"empty template", func(r *Request) { r.Template = core.CycleTemplate{} }},
		{"missing start", func(r *Request) { r.Start = core.Date{} }},
		{"missing person", func(r *Request) { r.PersonID = 0 }},
		{"inverted phase", func(r *Request) {
			r.Template = core.CycleTemplate{Phases: []core.CyclePhase{{StartDay: 4, EndDay: 2, Mood: "x"}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := good
			tt.mutate(&r)
			if _, err := Plan(r); !core.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCycleDay(t *testing.T) {
	cases := []struct{ offset, length, want int }{
		{0, 28, 1},
		{27, 28, 28},
		{28, 28, 1},
		{56, 28, 1},
		{5, 3, 3},
	}
	for _, tc := range cases {
		if got := CycleDay(tc.offset, tc.length); got != tc.want {
			t.Fatalf("CycleDay(%d, %d) = %d, want %d", tc.offset, tc.length, got, tc.want)
		}
	}
}

func TestNewResult(t *testing.T) {
	req := Request{PersonID: 7, Start: core.NewDate(2024, 1, 1), Length: 28, Template: flowTemplate()}
	plan, _ := Plan(req)
	res := NewResult(req, plan)
	if res.AppliedDays() != 15 || res.Span != 28 || res.PersonID != 7 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestBuiltinPresets(t *testing.T) {
	c := MustBuiltin()
	names := c.Names()
	if len(names) != 3 {
		t.Fatalf("expected 3 presets, got %v", names)
	}
	std, err := c.Get("Standard 28-day")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if std.Length != 28 || len(std.Phases) != 4 || std.Phases[2].Mood != "Ovulation" {
		t.Fatalf("unexpected preset %+v", std)
	}

	sym, _ := c.Get("Symptom Tracking")
	plan, err := Plan(Request{PersonID: 1, Start: core.NewDate(2024, 1, 1), Length: sym.Length, Template: sym.Template()})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan) != 28 {
		t.Fatalf("symptom tracking covers every day, got %d", len(plan))
	}

	if _, err := c.Get("nope"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadCatalogOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	content := `presets:
  - name: Short
    length: 21
    phases:
      - {name: A, start: 1, end: 3, mood: Low}
  - name: Standard 28-day
    length: 30
    phases:
      - {name: B, start: 1, end: 30, mood: Steady}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.List()) != 4 {
		t.Fatalf("expected 4 presets, got %d", len(c.List()))
	}
	std, _ := c.Get("Standard 28-day")
	if std.Length != 30 || std.Phases[0].Mood != "Steady" {
		t.Fatalf("override not applied: %+v", std)
	}
	if c.List()[3].Name != "Short" {
		t.Fatalf("new presets append after built-ins")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("presets:\n  - name: X\n    length: 5\n    phases: []\n"), 0o644)
	if _, err := LoadCatalog(bad); err == nil {
		t.Fatalf("expected error for empty phases")
	}
	if _, err := LoadCatalog(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
