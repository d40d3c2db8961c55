package http

import (
	"context"
	"net/http"

	"moodcal/internal/calendar"
	"moodcal/internal/core"
	"moodcal/internal/export"
	"moodcal/internal/log"
	"moodcal/internal/services"
)

type personRequest struct {
	Name  string   `json:"name"`
	Color string   `json:"color"`
	Moods []string `json:"moods"`
}

func (p personRequest) person(id int64) core.Person {
	out := core.Person{ID: id, Name: sanitizeInput(p.Name), Color: p.Color}
	if p.Moods != nil {
		out.Moods = make([]string, len(p.Moods))
		for i, m := range p.Moods {
			out.Moods[i] = sanitizeInput(m)
		}
	}
	return out
}

func (s *Server) handleListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := s.moods.ListPersons(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if persons == nil {
		persons = []core.Person{}
	}
	writeJSON(w, http.StatusOK, persons)
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.moods.CreatePerson(r.Context(), req.person(0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/persons/"+formatID(created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.moods.GetPerson(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.moods.UpdatePerson(r.Context(), req.person(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeletePerson removes the person and, by cascade, their entries.
func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.moods.DeletePerson(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// entryRequest is a partial update: omitted fields keep their stored value.
type entryRequest struct {
	Mood  *string `json:"mood"`
	Notes *string `json:"notes"`
}

func entryKey(r *http.Request) (core.Date, int64, error) {
	date, err := pathDate(r, "date")
	if err != nil {
		return core.Date{}, 0, err
	}
	id, err := pathID(r, "person_id")
	if err != nil {
		return core.Date{}, 0, err
	}
	return date, id, nil
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	date, personID, err := entryKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.moods.GetEntry(r.Context(), date, personID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleSaveEntry(w http.ResponseWriter, r *http.Request) {
	date, personID, err := entryKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Mood != nil {
		req.Mood = core.StringPtr(sanitizeInput(*req.Mood))
	}

	entry, err := s.moods.SaveEntry(r.Context(), core.EntryPatch{
		Date:     date,
		PersonID: personID,
		Mood:     req.Mood,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleClearEntry(w http.ResponseWriter, r *http.Request) {
	date, personID, err := entryKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.moods.ClearEntry(r.Context(), date, personID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	view, err := calendar.ParseView(r.PathValue("view"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := queryDate(r, "date")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var p calendar.Projection
	if view == calendar.ViewYear {
		p, err = s.years.Get(r.Context(), "year:"+ref.String(), func(ctx context.Context) (calendar.Projection, error) {
			return s.projector.Project(ctx, ref, view)
		})
	} else {
		p, err = s.projector.Project(r.Context(), ref, view)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentCalendar).DebugContext(r.Context(), "Calendar projected",
		log.FieldOperation, log.OpProject,
		log.FieldView, string(view),
		log.FieldDate, ref.String())
	writeJSON(w, http.StatusOK, p)
}

type navigation struct {
	View  calendar.View `json:"view"`
	From  core.Date     `json:"from"`
	Steps int           `json:"steps"`
	Date  core.Date     `json:"date"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	view, err := calendar.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := queryDate(r, "date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	steps, err := queryInt(r, "steps", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	next, err := calendar.Navigate(ref, view, steps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, navigation{View: view, From: ref, Steps: steps, Date: next})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cycles.Presets())
}

type applyResponse struct {
	PersonID    int64       `json:"person_id"`
	AppliedDays int         `json:"applied_days"`
	Span        int         `json:"span"`
	Dates       []core.Date `json:"dates"`
}

func (s *Server) handleApplyCycle(w http.ResponseWriter, r *http.Request) {
	var req services.ApplyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Preset = sanitizeInput(req.Preset)

	res, err := s.cycles.Apply(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dates := res.Dates
	if dates == nil {
		dates = []core.Date{}
	}
	writeJSON(w, http.StatusOK, applyResponse{
		PersonID:    res.PersonID,
		AppliedDays: res.AppliedDays(),
		Span:        res.Span,
		Dates:       dates,
	})
}

// handleMoodStats returns the frequency table. year=0 or absent covers
// all time; person_id narrows to one person.
func (s *Server) handleMoodStats(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	personID, err := queryInt(r, "person_id", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var filter core.EntryFilter
	if year != 0 {
		filter = core.YearFilter(year)
	}
	filter.PersonID = int64(personID)

	summary, err := s.stats.Moods(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if summary.Counts == nil {
		summary.Counts = []core.MoodCount{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	from, err := optionalDate(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := optionalDate(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		writeError(w, r, core.NewValidationError("to", "end date before start date"))
		return
	}

	days, err := s.stats.Activity(r.Context(), core.EntryFilter{From: from, To: to})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if days == nil {
		days = []core.DayActivity{}
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := export.Load(r.Context(), s.store, core.EntryFilter{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="moodcal.csv"`)
	if err := export.WriteCSV(w, rows); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed", log.FieldError, err)
	}
}
