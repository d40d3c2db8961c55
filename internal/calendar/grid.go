package calendar

import (
	"moodcal/internal/core"
	"moodcal/internal/stats"
)

// Cell is one day of a grid. Placeholder cells pad month rows and carry
// no date.
type Cell struct {
	Date        core.Date           `json:"date"`
	Placeholder bool                `json:"placeholder,omitempty"`
	Today       bool                `json:"today,omitempty"`
	Entries     map[int64]EntryView `json:"entries,omitempty"`
}

// MonthGrid is a Monday-first month layout of 7-cell week rows.
type MonthGrid struct {
	Year  int      `json:"year"`
	Month int      `json:"month"`
	Weeks [][]Cell `json:"weeks"`
}

// WeekGrid holds Monday through Sunday of one ISO week.
type WeekGrid struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
	Days  []Cell    `json:"days"`
}

// DayCount is the heatmap value for a single day.
type DayCount struct {
	Date  core.Date `json:"date"`
	Month int       `json:"month"`
	Day   int       `json:"day"`
	Count int       `json:"count"`
}

// YearHeatmap buckets per-day person counts by month and day, with the
// mood distribution for the same year.
type YearHeatmap struct {
	Year     int              `json:"year"`
	Days     []DayCount       `json:"days"`
	Matrix   [][]int          `json:"matrix"`
	MaxCount int              `json:"max_count"`
	Moods    core.MoodSummary `json:"moods"`
	NoData   bool             `json:"no_data"`
}

// Count returns the value for month/day, or 0 for impossible days.
func (h YearHeatmap) Count(month, day int) int {
	if month < 1 || month > len(h.Matrix) {
		return 0
	}
	row := h.Matrix[month-1]
	if day < 1 || day > len(row) {
		return 0
	}
	return row[day-1]
}

// Cells returns the non-placeholder cells in date order.
func (g MonthGrid) Cells() []Cell {
	var out []Cell
	for _, week := range g.Weeks {
		for _, c := range week {
			if !c.Placeholder {
				out = append(out, c)
			}
		}
	}
	return out
}

func newCell(d core.Date, idx *EntryIndex, today core.Date) Cell {
	return Cell{Date: d, Today: d.Equal(today), Entries: idx.Lookup(d)}
}

// BuildMonth lays out the month containing ref.
func BuildMonth(ref core.Date, idx *EntryIndex, today core.Date) MonthGrid {
	year, month := ref.Year(), ref.Month()
	first := core.NewDate(year, month, 1)
	days := core.DaysIn(year, month)
	lead := first.MondayIndex()

	total := lead + days
	if rem := total % 7; rem != 0 {
		total += 7 - rem
	}

	grid := MonthGrid{Year: year, Month: month, Weeks: make([][]Cell, 0, total/7)}
	var row []Cell
	for i := 0; i < total; i++ {
		day := i - lead + 1
		if day < 1 || day > days {
			row = append(row, Cell{Placeholder: true})
		} else {
			row = append(row, newCell(core.NewDate(year, month, day), idx, today))
		}
		if len(row) == 7 {
			grid.Weeks = append(grid.Weeks, row)
			row = nil
		}
	}
	return grid
}

// BuildWeek lays out the ISO week containing ref.
func BuildWeek(ref core.Date, idx *EntryIndex, today core.Date) WeekGrid {
	start := WeekStart(ref)
	grid := WeekGrid{Start: start, End: start.AddDays(6), Days: make([]Cell, 7)}
	for i := range grid.Days {
		grid.Days[i] = newCell(start.AddDays(i), idx, today)
	}
	return grid
}

// BuildYear computes the heatmap for year from entries already limited
// to that year and to registered persons.
func BuildYear(year int, entries []core.MoodEntry, idx *EntryIndex) YearHeatmap {
	h := YearHeatmap{
		Year:   year,
		Days:   make([]DayCount, 0, core.DaysInYear(year)),
		Matrix: make([][]int, 12),
		Moods:  stats.Frequencies(entries),
	}
	h.NoData = h.Moods.NoData

	for m := 1; m <= 12; m++ {
		h.Matrix[m-1] = make([]int, core.DaysIn(year, m))
		for d := 1; d <= len(h.Matrix[m-1]); d++ {
			date := core.NewDate(year, m, d)
			n := idx.Count(date)
			h.Matrix[m-1][d-1] = n
			h.Days = append(h.Days, DayCount{Date: date, Month: m, Day: d, Count: n})
			if n > h.MaxCount {
				h.MaxCount = n
			}
		}
	}
	return h
}
