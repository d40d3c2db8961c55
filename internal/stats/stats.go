// Package stats aggregates stored mood entries into frequency tables and
// per-day activity counts.
package stats

import (
	"context"
	"fmt"
	"sort"

	"moodcal/internal/core"
	"moodcal/internal/ports"
)

// Frequencies counts entries per mood label, ordered by count
// descending then label. An empty input yields NoData, not an error.
func Frequencies(entries []core.MoodEntry) core.MoodSummary {
	if len(entries) == 0 {
		return core.MoodSummary{Counts: []core.MoodCount{}, NoData: true}
	}

	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Mood]++
	}

	out := make([]core.MoodCount, 0, len(counts))
	for mood, n := range counts {
		out = append(out, core.MoodCount{Mood: mood, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Mood < out[j].Mood
	})

	return core.MoodSummary{Counts: out, Total: len(entries)}
}

// ActivityByDate maps each date string to the number of distinct
// persons with an entry that day.
func ActivityByDate(entries []core.MoodEntry) map[string]int {
	seen := make(map[string]map[int64]struct{})
	for _, e := range entries {
		key := e.Date.String()
		if seen[key] == nil {
			seen[key] = make(map[int64]struct{})
		}
		seen[key][e.PersonID] = struct{}{}
	}
	out := make(map[string]int, len(seen))
	for k, v := range seen {
		out[k] = len(v)
	}
	return out
}

// DailyActivity lists per-day activity for every date that has at
// least one entry, in ascending date order.
func DailyActivity(entries []core.MoodEntry) []core.DayActivity {
	byDate := ActivityByDate(entries)
	out := make([]core.DayActivity, 0, len(byDate))
	for k, n := range byDate {
		d, err := core.ParseDate(k)
		if err != nil {
			continue
		}
		out = append(out, core.DayActivity{Date: d, Persons: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Service runs aggregations against the entry store. Store failures
// are returned as errors and never reported as empty results.
type Service struct {
	entries ports.EntryStore
}

func NewService(entries ports.EntryStore) *Service {
	return &Service{entries: entries}
}

// Moods returns the frequency table for entries matching filter.
func (s *Service) Moods(ctx context.Context, filter core.EntryFilter) (core.MoodSummary, error) {
	entries, err := s.entries.ListEntries(ctx, filter)
	if err != nil {
		return core.MoodSummary{}, fmt.Errorf("load entries for mood summary: %w", err)
	}
	return Frequencies(entries), nil
}

// Activity returns per-day activity for entries matching filter.
func (s *Service) Activity(ctx context.Context, filter core.EntryFilter) ([]core.DayActivity, error) {
	entries, err := s.entries.ListEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load entries for activity: %w", err)
	}
	return DailyActivity(entries), nil
}
