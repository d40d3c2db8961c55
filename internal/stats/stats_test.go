package stats

import (
	"context"
	"errors"
	"testing"

	"moodcal/internal/core"
	"moodcal/internal/storage/memory"
)

func entry(y, m, d int, person int64, mood string) core.MoodEntry {
	return core.MoodEntry{Date: core.NewDate(y, m, d), PersonID: person, Mood: mood}
}

func TestFrequencies(t *testing.T) {
	got := Frequencies([]core.MoodEntry{
		entry(2024, 1, 1, 1, "Sad"),
		entry(2024, 1, 1, 2, "Happy"),
		entry(2024, 1, 2, 1, "Happy"),
		entry(2024, 1, 3, 1, "Angry"),
	})
	if got.NoData || got.Total != 4 {
		t.Fatalf("unexpected summary %+v", got)
	}
	want := []core.MoodCount{{Mood: "Happy", Count: 2}, {Mood: "Angry", Count: 1}, {Mood: "Sad", Count: 1}}
	if len(got.Counts) != len(want) {
		t.Fatalf("counts = %+v", got.Counts)
	}
	for i := range want {
		if got.Counts[i] != want[i] {
			t.Fatalf("counts[%d] = %+v, want %+v", i, got.Counts[i], want[i])
		}
	}
}

func TestFrequenciesEmpty(t *testing.T) {
	for _, in := range [][]core.MoodEntry{nil, {}} {
		got := Frequencies(in)
		if !got.NoData || got.Total != 0 || got.Counts == nil || len(got.Counts) != 0 {
			t.Fatalf("expected explicit no-data summary, got %+v", got)
		}
	}
}

func TestDailyActivity(t *testing.T) {
	got := DailyActivity([]core.MoodEntry{
		entry(2024, 1, 2, 1, "a"),
		entry(2024, 1, 1, 1, "a"),
		entry(2024, 1, 1, 2, "b"),
		entry(2024, 1, 1, 2, "b"),
	})
	if len(got) != 2 {
		t.Fatalf("unexpected activity %+v", got)
	}
	if !got[0].Date.Equal(core.NewDate(2024, 1, 1)) || got[0].Persons != 2 {
		t.Fatalf("day 1 = %+v", got[0])
	}
	if got[1].Persons != 1 {
		t.Fatalf("day 2 = %+v", got[1])
	}
	if len(DailyActivity(nil)) != 0 {
		t.Fatalf("expected empty activity")
	}
}

type failingStore struct{ memory.Store }

func (*failingStore) ListEntries(context.Context, core.EntryFilter) ([]core.MoodEntry, error) {
	return nil, errors.New("disk on fire")
}

func TestServiceSurfacesStoreErrors(t *testing.T) {
	svc := NewService(&failingStore{})
	if _, err := svc.Moods(context.Background(), core.EntryFilter{}); err == nil {
		t.Fatalf("store failure must not become no-data")
	}
	if _, err := svc.Activity(context.Background(), core.EntryFilter{}); err == nil {
		t.Fatalf("store failure must surface")
	}
}

func TestServiceFilters(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	a, _ := store.CreatePerson(ctx, core.Person{Name: "A", Color: "#fff"})
	b, _ := store.CreatePerson(ctx, core.Person{Name: "B", Color: "#fff"})
	for _, w := range []struct {
		date core.Date
		id   int64
		mood string
	}{
		{core.NewDate(2023, 5, 1), a.ID, "Sad"},
		{core.NewDate(2024, 5, 1), a.ID, "Happy"},
		{core.NewDate(2024, 5, 1), b.ID, "Happy"},
		{core.NewDate(2024, 5, 2), b.ID, "Tired"},
	} {
		store.UpsertEntry(ctx, core.EntryPatch{Date: w.date, PersonID: w.id, Mood: core.StringPtr(w.mood)})
	}

	svc := NewService(store)
	all, err := svc.Moods(ctx, core.EntryFilter{})
	if err != nil || all.Total != 4 {
		t.Fatalf("all = %+v err=%v", all, err)
	}
	year, _ := svc.Moods(ctx, core.YearFilter(2024))
	if year.Total != 3 || year.Counts[0].Mood != "Happy" {
		t.Fatalf("year = %+v", year)
	}
	person, _ := svc.Moods(ctx, core.EntryFilter{PersonID: b.ID})
	if person.Total != 2 {
		t.Fatalf("person = %+v", person)
	}
	empty, err := svc.Moods(ctx, core.YearFilter(1990))
	if err != nil || !empty.NoData {
		t.Fatalf("expected no data, got %+v err=%v", empty, err)
	}

	activity, _ := svc.Activity(ctx, core.YearFilter(2024))
	if len(activity) != 2 || activity[0].Persons != 2 {
		t.Fatalf("activity = %+v", activity)
	}
}
