package calendar

import "moodcal/internal/core"

// EntryView is what a cell shows for one person.
type EntryView struct {
	Mood  string `json:"mood"`
	Notes string `json:"notes,omitempty"`
}

// EntryIndex groups entries by date for constant time cell lookup.
type EntryIndex struct {
	byDate map[string]map[int64]EntryView
}

// NewEntryIndex indexes entries. When persons is non-nil, entries of
// persons not in the list are dropped.
func NewEntryIndex(entries []core.MoodEntry, persons []core.Person) *EntryIndex {
	var registered map[int64]bool
	if persons != nil {
		registered = make(map[int64]bool, len(persons))
		for _, p := range persons {
			registered[p.ID] = true
		}
	}

	idx := &EntryIndex{byDate: make(map[string]map[int64]EntryView)}
	for _, e := range entries {
		if registered != nil && !registered[e.PersonID] {
			continue
		}
		key := e.Date.String()
		if idx.byDate[key] == nil {
			idx.byDate[key] = make(map[int64]EntryView)
		}
		idx.byDate[key][e.PersonID] = EntryView{Mood: e.Mood, Notes: e.Notes}
	}
	return idx
}

// Lookup returns person id to entry for date, or nil when the day is
// empty. The returned map must not be modified.
func (x *EntryIndex) Lookup(date core.Date) map[int64]EntryView {
	return x.byDate[date.String()]
}

// Count is the number of persons with an entry on date.
func (x *EntryIndex) Count(date core.Date) int {
	return len(x.byDate[date.String()])
}

// Len is the number of distinct dates with at least one entry.
func (x *EntryIndex) Len() int {
	return len(x.byDate)
}
