package memory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"moodcal/internal/core"
	"moodcal/internal/log"
	"moodcal/internal/ports"
)

type entryKey struct {
	date     string
	personID int64
}

// Store keeps persons and entries in process memory. Every operation
// holds the single mutex for its whole read-modify-write.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	persons map[int64]core.Person
	entries map[entryKey]core.MoodEntry
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		nextID:  1,
		persons: make(map[int64]core.Person),
		entries: make(map[entryKey]core.MoodEntry),
	}
}

// NewFromFiles seeds persons from base/seed_persons.txt, one per line
// formatted as "name" or "name|#color|mood;mood". A missing file means no
// seeds; any other read failure is returned. Invalid lines are skipped
// with a warning.
func NewFromFiles(base string) (*Store, error) {
	path := filepath.Join(base, "seed_persons.txt")
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	s := New()
	for _, l := range lines {
		p := parseSeedLine(l.text)
		p.Normalize()
		if err := p.Validate(); err != nil {
			slog.Warn("Skipping invalid seed person",
				log.FieldComponent, log.ComponentStorage,
				"file", path,
				"line", l.number,
				log.FieldError, err)
			continue
		}
		if _, err := s.CreatePerson(context.Background(), p); err != nil {
			return nil, fmt.Errorf("seed %s:%d: %w", path, l.number, err)
		}
	}
	return s, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// CreatePerson implements ports.PersonStore
func (s *Store) CreatePerson(_ context.Context, p core.Person) (core.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID
	s.nextID++
	p.Moods = cloneMoods(p.Moods)
	s.persons[p.ID] = p
	return clonePerson(p), nil
}

// GetPerson implements ports.PersonStore
func (s *Store) GetPerson(_ context.Context, id int64) (core.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok {
		return core.Person{}, fmt.Errorf("get person %d: %w", id, core.ErrPersonNotFound)
	}
	return clonePerson(p), nil
}

// ListPersons implements ports.PersonStore
func (s *Store) ListPersons(_ context.Context) ([]core.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, clonePerson(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdatePerson implements ports.PersonStore
func (s *Store) UpdatePerson(_ context.Context, p core.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[p.ID]; !ok {
		return fmt.Errorf("update person %d: %w", p.ID, core.ErrPersonNotFound)
	}
	p.Moods = cloneMoods(p.Moods)
	s.persons[p.ID] = p
	return nil
}

// DeletePerson implements ports.PersonStore
func (s *Store) DeletePerson(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[id]; !ok {
		return fmt.Errorf("delete person %d: %w", id, core.ErrPersonNotFound)
	}
	delete(s.persons, id)
	for k := range s.entries {
		if k.personID == id {
			delete(s.entries, k)
		}
	}
	return nil
}

// UpsertEntry implements ports.EntryStore
func (s *Store) UpsertEntry(_ context.Context, patch core.EntryPatch) (core.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[patch.PersonID]; !ok {
		return core.MoodEntry{}, fmt.Errorf("person %d: %w", patch.PersonID, core.ErrPersonNotFound)
	}

	key := entryKey{date: patch.Date.String(), personID: patch.PersonID}
	var existing *core.MoodEntry
	if e, ok := s.entries[key]; ok {
		existing = &e
	}
	merged, err := patch.Apply(existing)
	if err != nil {
		return core.MoodEntry{}, err
	}
	s.entries[key] = merged
	return merged, nil
}

// GetEntry implements ports.EntryStore
func (s *Store) GetEntry(_ context.Context, date core.Date, personID int64) (core.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryKey{date: date.String(), personID: personID}]
	if !ok {
		return core.MoodEntry{}, fmt.Errorf("get entry %s/%d: %w", date, personID, core.ErrEntryNotFound)
	}
	return e, nil
}

// DeleteEntry implements ports.EntryStore
func (s *Store) DeleteEntry(_ context.Context, date core.Date, personID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entryKey{date: date.String(), personID: personID}
	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("delete entry %s/%d: %w", date, personID, core.ErrEntryNotFound)
	}
	delete(s.entries, key)
	return nil
}

// ListEntries implements ports.EntryStore
func (s *Store) ListEntries(_ context.Context, filter core.EntryFilter) ([]core.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.MoodEntry{}
	for _, e := range s.entries {
		if filter.Contains(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].PersonID < out[j].PersonID
	})
	return out, nil
}

// ApplyMoods implements ports.EntryStore
func (s *Store) ApplyMoods(_ context.Context, personID int64, assignments []core.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[personID]; !ok {
		return fmt.Errorf("person %d: %w", personID, core.ErrPersonNotFound)
	}
	for _, a := range assignments {
		key := entryKey{date: a.Date.String(), personID: personID}
		e, ok := s.entries[key]
		if !ok {
			e = core.MoodEntry{Date: a.Date, PersonID: personID}
		}
		e.Mood = a.Mood
		s.entries[key] = e
	}
	return nil
}

func clonePerson(p core.Person) core.Person {
	p.Moods = cloneMoods(p.Moods)
	return p
}

func cloneMoods(in []string) []string {
	return append([]string{}, in...)
}

func parseSeedLine(line string) core.Person {
	parts := strings.Split(line, "|")
	p := core.Person{Name: parts[0]}
	if len(parts) > 1 {
		p.Color = parts[1]
	}
	if len(parts) > 2 {
		p.Moods = []string{}
		for _, m := range strings.Split(parts[2], ";") {
			if m = strings.TrimSpace(m); m != "" {
				p.Moods = append(p.Moods, m)
			}
		}
	}
	return p
}

type seedLine struct {
	number int
	text   string
}

// readLines returns the non-blank, non-comment lines of path.
func readLines(path string) ([]seedLine, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var out []seedLine
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, seedLine{number: n, text: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	return out, nil
}
