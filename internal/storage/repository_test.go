package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodcal/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "mood.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createPerson(t *testing.T, repo *SQLiteRepository, name string) core.Person {
	t.Helper()
	p, err := repo.CreatePerson(context.Background(), core.Person{
		Name:  name,
		Color: "#00FF00",
		Moods: []string{"Happy", "Sad"},
	})
	require.NoError(t, err)
	return p
}

func TestNewSQLiteRepository_RunsMigrations(t *testing.T) {
	repo := newTestRepo(t)
	assert.Equal(t, uint(3), repo.SchemaVersion())
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestMigrations_AddNotesToExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Build a database at the pre-notes schema and write a legacy row.
	require.NoError(t, MigrateTo(path, 1))
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO persons (name, color, moods) VALUES ('Ann', '#fff', '["x"]')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO mood_entries (date, person_id, mood) VALUES ('2024-01-01', 1, 'x')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	e, err := repo.GetEntry(context.Background(), core.NewDate(2024, 1, 1), 1)
	require.NoError(t, err)
	assert.Equal(t, "x", e.Mood)
	assert.Equal(t, "", e.Notes)
}

func TestPersonCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ann := createPerson(t, repo, "Ann")
	bob := createPerson(t, repo, "Bob")
	assert.NotZero(t, ann.ID)
	assert.Greater(t, bob.ID, ann.ID)

	got, err := repo.GetPerson(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, ann, got)

	ann.Name = "Anna"
	ann.Moods = []string{"Calm"}
	require.NoError(t, repo.UpdatePerson(ctx, ann))

	persons, err := repo.ListPersons(ctx)
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, "Anna", persons[0].Name)
	assert.Equal(t, []string{"Calm"}, persons[0].Moods)

	err = repo.UpdatePerson(ctx, core.Person{ID: 999, Name: "x", Color: "#fff"})
	assert.ErrorIs(t, err, core.ErrPersonNotFound)

	_, err = repo.GetPerson(ctx, 999)
	assert.ErrorIs(t, err, core.ErrPersonNotFound)

	// IDs are never reused after delete.
	require.NoError(t, repo.DeletePerson(ctx, bob.ID))
	carl := createPerson(t, repo, "Carl")
	assert.Greater(t, carl.ID, bob.ID)
}

func TestPerson_EmptyMoodsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.CreatePerson(ctx, core.Person{Name: "Empty", Color: "#000", Moods: nil})
	require.NoError(t, err)

	got, err := repo.GetPerson(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Moods)
	assert.Empty(t, got.Moods)
}

func TestUpsertEntry_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := createPerson(t, repo, "Ann")
	day := core.NewDate(2024, 2, 10)

	for i := 0; i < 2; i++ {
		_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: p.ID, Mood: core.StringPtr("Happy")})
		require.NoError(t, err)
	}
	_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: p.ID, Mood: core.StringPtr("Sad")})
	require.NoError(t, err)

	entries, err := repo.ListEntries(ctx, core.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Sad", entries[0].Mood)
}

func TestUpsertEntry_NotesPreservation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := createPerson(t, repo, "Ann")
	day := core.NewDate(2024, 2, 10)

	_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: p.ID, Mood: core.StringPtr("Happy"), Notes: core.StringPtr("gym")})
	require.NoError(t, err)

	e, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: p.ID, Mood: core.StringPtr("Tired")})
	require.NoError(t, err)
	assert.Equal(t, "Tired", e.Mood)
	assert.Equal(t, "gym", e.Notes)

	e, err = repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: p.ID, Notes: core.StringPtr("rest day")})
	require.NoError(t, err)
	assert.Equal(t, "Tired", e.Mood)
	assert.Equal(t, "rest day", e.Notes)

	stored, err := repo.GetEntry(ctx, day, p.ID)
	require.NoError(t, err)
	assert.Equal(t, e, stored)
}

func TestUpsertEntry_Errors(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := createPerson(t, repo, "Ann")
	day := core.NewDate(2024, 2, 10)

	_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: 42, Mood: core.StringPtr("x")})
	assert.ErrorIs(t, err, core.ErrPersonNotFound)

	_, err = repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: p.ID, Notes: core.StringPtr("only notes")})
	assert.True(t, core.IsValidation(err), "got %v", err)

	_, err = repo.GetEntry(ctx, day, p.ID)
	assert.ErrorIs(t, err, core.ErrEntryNotFound)
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := createPerson(t, repo, "Ann")
	day := core.NewDate(2024, 2, 10)

	_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: p.ID, Mood: core.StringPtr("x")})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteEntry(ctx, day, p.ID))
	assert.ErrorIs(t, repo.DeleteEntry(ctx, day, p.ID), core.ErrEntryNotFound)
}

func TestDeletePerson_Cascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	ann := createPerson(t, repo, "Ann")
	bob := createPerson(t, repo, "Bob")

	for d := 1; d <= 5; d++ {
		for _, id := range []int64{ann.ID, bob.ID} {
			_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: core.NewDate(2024, 3, d), PersonID: id, Mood: core.StringPtr("x")})
			require.NoError(t, err)
		}
	}

	require.NoError(t, repo.DeletePerson(ctx, ann.ID))

	entries, err := repo.ListEntries(ctx, core.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, bob.ID, e.PersonID)
	}

	var orphans int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM mood_entries WHERE person_id = ?`, ann.ID).Scan(&orphans))
	assert.Zero(t, orphans)

	assert.ErrorIs(t, repo.DeletePerson(ctx, ann.ID), core.ErrPersonNotFound)
}

func TestListEntries_Filters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	ann := createPerson(t, repo, "Ann")
	bob := createPerson(t, repo, "Bob")

	writes := []struct {
		date core.Date
		id   int64
	}{
		{core.NewDate(2023, 12, 31), ann.ID},
		{core.NewDate(2024, 1, 1), bob.ID},
		{core.NewDate(2024, 1, 1), ann.ID},
		{core.NewDate(2024, 6, 1), ann.ID},
		{core.NewDate(2025, 1, 1), bob.ID},
	}
	for _, w := range writes {
		_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: w.date, PersonID: w.id, Mood: core.StringPtr("x")})
		require.NoError(t, err)
	}

	year, err := repo.ListEntries(ctx, core.YearFilter(2024))
	require.NoError(t, err)
	require.Len(t, year, 3)
	// Ordered by date then person.
	assert.Equal(t, ann.ID, year[0].PersonID)
	assert.Equal(t, bob.ID, year[1].PersonID)

	annOnly, err := repo.ListEntries(ctx, core.EntryFilter{PersonID: ann.ID})
	require.NoError(t, err)
	assert.Len(t, annOnly, 3)

	none, err := repo.ListEntries(ctx, core.YearFilter(1999))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestApplyMoods(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := createPerson(t, repo, "Ann")
	day1 := core.NewDate(2024, 1, 1)
	day2 := core.NewDate(2024, 1, 2)

	_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: day1, PersonID: p.ID, Mood: core.StringPtr("Happy"), Notes: core.StringPtr("keep me")})
	require.NoError(t, err)

	err = repo.ApplyMoods(ctx, p.ID, []core.Assignment{
		{Date: day1, CycleDay: 1, Mood: "Flow"},
		{Date: day2, CycleDay: 2, Mood: "Flow"},
	})
	require.NoError(t, err)

	e1, err := repo.GetEntry(ctx, day1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flow", e1.Mood)
	assert.Equal(t, "keep me", e1.Notes)

	e2, err := repo.GetEntry(ctx, day2, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flow", e2.Mood)
}

func TestApplyMoods_UnknownPersonWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	err := repo.ApplyMoods(ctx, 77, []core.Assignment{{Date: core.NewDate(2024, 1, 1), Mood: "Flow"}})
	assert.ErrorIs(t, err, core.ErrPersonNotFound)

	entries, err := repo.ListEntries(ctx, core.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpsertEntry_ConcurrentPatchesKeepBothFields(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := createPerson(t, repo, "Ann")
	day := core.NewDate(2024, 4, 4)

	_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: p.ID, Mood: core.StringPtr("Start")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: p.ID, Mood: core.StringPtr("Happy")})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := repo.UpsertEntry(ctx, core.EntryPatch{Date: day, PersonID: p.ID, Notes: core.StringPtr("walk")})
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	e, err := repo.GetEntry(ctx, day, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Happy", e.Mood)
	assert.Equal(t, "walk", e.Notes)
}
