package services

import (
	"context"
	"fmt"

	"moodcal/internal/amqp"
	"moodcal/internal/core"
	"moodcal/internal/cycle"
	"moodcal/internal/log"
	"moodcal/internal/ports"
)

// ApplyRequest asks for a cycle application. Exactly one of Preset or
// Template must be set. Length falls back to the preset's length.
type ApplyRequest struct {
	PersonID int64               `json:"person_id"`
	Start    core.Date           `json:"start_date"`
	Length   int                 `json:"cycle_length"`
	Preset   string              `json:"preset,omitempty"`
	Template *core.CycleTemplate `json:"template,omitempty"`
	Repeat   bool                `json:"repeat"`
}

// CycleService resolves presets, plans cycles and persists them atomically.
type CycleService struct {
	*Notifier
	store   ports.Store
	catalog *cycle.Catalog
	logger  *log.StructuredLogger
}

// NewCycleService uses the built-in presets when catalog is nil.
func NewCycleService(store ports.Store, catalog *cycle.Catalog, notifier *Notifier) *CycleService {
	if notifier == nil {
		notifier = NewNotifier(nil, nil)
	}
	if catalog == nil {
		catalog = cycle.MustBuiltin()
	}
	return &CycleService{
		Notifier: notifier,
		store:    store,
		catalog:  catalog,
		logger:   log.NewStructuredLogger(log.New(log.ComponentCycle, nil)),
	}
}

// Presets lists the available presets in definition order.
func (s *CycleService) Presets() []cycle.Preset {
	return s.catalog.List()
}

// Resolve turns an ApplyRequest into a planner request.
func (s *CycleService) Resolve(req ApplyRequest) (cycle.Request, error) {
	out := cycle.Request{
		PersonID: req.PersonID,
		Start:    req.Start,
		Length:   req.Length,
		Repeat:   req.Repeat,
	}

	switch {
	case req.Preset != "" && req.Template != nil:
		return cycle.Request{}, core.NewValidationError("template", "give either a preset or a template, not both")
	case req.Preset != "":
		p, err := s.catalog.Get(req.Preset)
		if err != nil {
			return cycle.Request{}, err
		}
		out.Template = p.Template()
		if out.Length == 0 {
			out.Length = p.Length
		}
	case req.Template != nil:
		out.Template = *req.Template
	default:
		return cycle.Request{}, core.NewValidationError("template", "a preset or a template is required")
	}
	return out, nil
}

// Apply writes the planned moods for every matched day in one
// transaction. Notes on touched days are kept; unmatched days are not
// written. A missing person is reported as NotFound with nothing written.
func (s *CycleService) Apply(ctx context.Context, req ApplyRequest) (result cycle.Result, err error) {
	defer s.track("apply_cycle")(&err)

	r, err := s.Resolve(req)
	if err != nil {
		return cycle.Result{}, err
	}
	plan, err := cycle.Plan(r)
	if err != nil {
		return cycle.Result{}, err
	}
	if _, err = s.store.GetPerson(ctx, r.PersonID); err != nil {
		return cycle.Result{}, err
	}
	if err = s.store.ApplyMoods(ctx, r.PersonID, plan); err != nil {
		return cycle.Result{}, fmt.Errorf("apply cycle for person %d: %w", r.PersonID, err)
	}

	result = cycle.NewResult(r, plan)
	s.observer.RecordCycleApplied(result.AppliedDays())
	s.logger.LogCycleApplied(ctx, r.PersonID, req.Preset, result.AppliedDays())
	s.notify(ctx, amqp.NewChangeMessage(amqp.KindCycleApplied, r.PersonID, result.Dates...))
	return result, nil
}
