package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical day-granularity representation used in
// storage, JSON payloads and exports.
const DateLayout = "2006-01-02"

// DefaultColor is assigned to a person registered without a color.
const DefaultColor = "#FF0000"

// DefaultMoods is the starter palette offered to new persons.
var DefaultMoods = []string{
	"😊 Happy",
	"😢 Sad",
	"😠 Angry",
	"😨 Anxious",
	"😴 Tired",
	"💪 Energetic",
	"😐 Neutral",
}

type (
	// Date is a calendar day. The wrapped time is always midnight UTC.
	Date struct {
		time.Time
	}

	Person struct {
		ID    int64    `json:"id"`
		Name  string   `json:"name"`
		Color string   `json:"color"`
		Moods []string `json:"moods"`
	}

	// MoodEntry is the single mood a person recorded on a given day.
	MoodEntry struct {
		Date     Date   `json:"date"`
		PersonID int64  `json:"person_id"`
		Mood     string `json:"mood"`
		Notes    string `json:"notes"`
	}

	// EntryPatch describes an upsert. Nil fields keep the stored value.
	EntryPatch struct {
		Date     Date
		PersonID int64
		Mood     *string
		Notes    *string
	}

	// EntryFilter narrows entry listings. Zero values disable a bound.
	EntryFilter struct {
		From     Date
		To       Date
		PersonID int64
	}
)

// NewDate creates a new Date from year, month, day. Out of range values
// normalize the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, NewValidationError("date", fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s))
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal reports whether d and other are the same day.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// MondayIndex returns 0 for Monday through 6 for Sunday.
func (d Date) MondayIndex() int {
	return (int(d.Weekday()) + 6) % 7
}

func (d Date) Validate() error {
	if d.IsZero() {
		return NewValidationError("date", "date cannot be zero")
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return NewValidationError("date", "date must be a string")
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return NewDate(year, month+1, 0).Day()
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	return NewDate(year, 12, 31).YearDay()
}

// Normalize fills registration defaults and trims user input.
func (p *Person) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Color = strings.TrimSpace(p.Color)
	if p.Color == "" {
		p.Color = DefaultColor
	}
	if p.Moods == nil {
		p.Moods = append([]string(nil), DefaultMoods[:3]...)
	}
	for i, m := range p.Moods {
		p.Moods[i] = strings.TrimSpace(m)
	}
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "name cannot be empty")
	}
	if !IsHexColor(p.Color) {
		return NewValidationError("color", fmt.Sprintf("invalid color %q: expected #RGB or #RRGGBB", p.Color))
	}
	for _, m := range p.Moods {
		if strings.TrimSpace(m) == "" {
			return NewValidationError("moods", "mood labels cannot be blank")
		}
	}
	return nil
}

// IsHexColor accepts #RGB and #RRGGBB.
func IsHexColor(s string) bool {
	if len(s) != 4 && len(s) != 7 {
		return false
	}
	if s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func (e MoodEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.PersonID <= 0 {
		return NewValidationError("person_id", "person id must be positive")
	}
	if strings.TrimSpace(e.Mood) == "" {
		return NewValidationError("mood", "mood cannot be empty")
	}
	return nil
}

func (p EntryPatch) Validate() error {
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if p.PersonID <= 0 {
		return NewValidationError("person_id", "person id must be positive")
	}
	if p.Mood != nil && strings.TrimSpace(*p.Mood) == "" {
		return NewValidationError("mood", "mood cannot be empty")
	}
	if p.Mood == nil && p.Notes == nil {
		return NewValidationError("mood", "nothing to update: mood or notes required")
	}
	return nil
}

// Apply merges the patch onto the currently stored entry, which is nil
// when no entry exists yet for the (date, person) pair.
func (p EntryPatch) Apply(existing *MoodEntry) (MoodEntry, error) {
	var merged MoodEntry
	if existing != nil {
		merged = *existing
	} else {
		if p.Mood == nil {
			return MoodEntry{}, NewValidationError("mood", "mood is required for a new entry")
		}
		merged = MoodEntry{Date: p.Date, PersonID: p.PersonID}
	}
	if p.Mood != nil {
		merged.Mood = strings.TrimSpace(*p.Mood)
	}
	if p.Notes != nil {
		merged.Notes = *p.Notes
	}
	return merged, merged.Validate()
}

// Contains reports whether the entry passes the filter.
func (f EntryFilter) Contains(e MoodEntry) bool {
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if f.PersonID != 0 && e.PersonID != f.PersonID {
		return false
	}
	return true
}

// YearFilter covers every day of year.
func YearFilter(year int) EntryFilter {
	return EntryFilter{From: NewDate(year, 1, 1), To: NewDate(year, 12, 31)}
}

// StringPtr is a convenience for building patches.
func StringPtr(s string) *string {
	return &s
}
