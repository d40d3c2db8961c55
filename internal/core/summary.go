package core

// MoodCount is the number of entries carrying a mood label.
type MoodCount struct {
	Mood  string `json:"mood"`
	Count int    `json:"count"`
}

// MoodSummary is a frequency table over a set of entries. NoData is set
// when no entry matched, which is a result and not an error.
type MoodSummary struct {
	Counts []MoodCount `json:"counts"`
	Total  int         `json:"total"`
	NoData bool        `json:"no_data"`
}

// DayActivity is the number of distinct persons with an entry on Date.
type DayActivity struct {
	Date    Date `json:"date"`
	Persons int  `json:"persons"`
}
