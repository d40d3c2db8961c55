package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"moodcal/internal/calendar"
	"moodcal/internal/core"
)

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func renderProjection(w io.Writer, p calendar.Projection) {
	names := make(map[int64]string, len(p.Persons))
	for _, person := range p.Persons {
		names[person.ID] = person.Name
	}

	switch {
	case p.Month != nil:
		renderMonth(w, *p.Month)
		renderDayDetails(w, p.Month.Cells(), names)
	case p.Week != nil:
		fmt.Fprintf(w, "Week %s to %s\n", p.Week.Start, p.Week.End)
		for i, c := range p.Week.Days {
			fmt.Fprintf(w, "%s %s%s\n", weekdays[i], c.Date, todayMark(c))
			for _, line := range entryLines(c, names) {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	case p.Year != nil:
		renderYear(w, *p.Year)
	}
	fmt.Fprintf(w, "previous: %s  next: %s\n", p.Previous, p.Next)
}

// renderMonth prints a Monday-first grid; days with entries carry the
// number of persons who recorded one.
func renderMonth(w io.Writer, g calendar.MonthGrid) {
	fmt.Fprintf(w, "%d-%02d\n", g.Year, g.Month)
	fmt.Fprintln(w, strings.Join(weekdays, "   "))
	for _, week := range g.Weeks {
		cells := make([]string, len(week))
		for i, c := range week {
			switch {
			case c.Placeholder:
				cells[i] = "     "
			case len(c.Entries) > 0:
				cells[i] = fmt.Sprintf("%2d(%d)", c.Date.Day(), len(c.Entries))
			default:
				cells[i] = fmt.Sprintf("%2d   ", c.Date.Day())
			}
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " "))
	}
}

func renderDayDetails(w io.Writer, cells []calendar.Cell, names map[int64]string) {
	for _, c := range cells {
		lines := entryLines(c, names)
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s%s\n", c.Date, todayMark(c))
		for _, line := range lines {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

func entryLines(c calendar.Cell, names map[int64]string) []string {
	ids := make([]int64, 0, len(c.Entries))
	for id := range c.Entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		e := c.Entries[id]
		line := fmt.Sprintf("%s: %s", names[id], e.Mood)
		if e.Notes != "" {
			line += " (" + e.Notes + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func todayMark(c calendar.Cell) string {
	if c.Today {
		return " (today)"
	}
	return ""
}

func renderYear(w io.Writer, h calendar.YearHeatmap) {
	fmt.Fprintf(w, "%d\n", h.Year)
	if h.NoData {
		fmt.Fprintln(w, "no data")
		return
	}
	for m, row := range h.Matrix {
		var b strings.Builder
		for _, n := range row {
			b.WriteByte(heatLevel(n, h.MaxCount))
		}
		fmt.Fprintf(w, "%02d %s\n", m+1, b.String())
	}
	renderSummary(w, h.Moods)
}

// heatLevel maps a day count onto four shades relative to the busiest day.
func heatLevel(n, busiest int) byte {
	const shades = ".:+#"
	if n == 0 || busiest == 0 {
		return ' '
	}
	i := (n*len(shades) - 1) / busiest
	if i >= len(shades) {
		i = len(shades) - 1
	}
	return shades[i]
}

func renderSummary(w io.Writer, s core.MoodSummary) {
	if s.NoData {
		fmt.Fprintln(w, "no data")
		return
	}
	for _, c := range s.Counts {
		fmt.Fprintf(w, "%-20s %4d %5.1f%%\n", c.Mood, c.Count, 100*float64(c.Count)/float64(s.Total))
	}
	fmt.Fprintf(w, "%-20s %4d\n", "total", s.Total)
}
