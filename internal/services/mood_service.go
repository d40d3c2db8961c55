package services

import (
	"context"
	"fmt"

	"moodcal/internal/amqp"
	"moodcal/internal/core"
	"moodcal/internal/log"
	"moodcal/internal/ports"
)

// MoodService validates and persists persons and mood entries, then
// announces each committed write.
type MoodService struct {
	*Notifier
	store  ports.Store
	logger *log.StructuredLogger
}

func NewMoodService(store ports.Store, notifier *Notifier) *MoodService {
	if notifier == nil {
		notifier = NewNotifier(nil, nil)
	}
	return &MoodService{
		Notifier: notifier,
		store:    store,
		logger:   log.NewStructuredLogger(log.New(log.ComponentMood, nil)),
	}
}

func (s *MoodService) CreatePerson(ctx context.Context, p core.Person) (created core.Person, err error) {
	defer s.track("create_person")(&err)

	p.Normalize()
	if err = p.Validate(); err != nil {
		return core.Person{}, err
	}
	created, err = s.store.CreatePerson(ctx, p)
	if err != nil {
		return core.Person{}, fmt.Errorf("create person: %w", err)
	}
	s.notify(ctx, amqp.NewChangeMessage(amqp.KindPersonSaved, created.ID))
	return created, nil
}

func (s *MoodService) GetPerson(ctx context.Context, id int64) (core.Person, error) {
	return s.store.GetPerson(ctx, id)
}

func (s *MoodService) ListPersons(ctx context.Context) ([]core.Person, error) {
	return s.store.ListPersons(ctx)
}

// UpdatePerson replaces a person's name, color and mood list.
func (s *MoodService) UpdatePerson(ctx context.Context, p core.Person) (updated core.Person, err error) {
	defer s.track("update_person")(&err)

	if p.ID <= 0 {
		err = core.NewValidationError("id", "person id must be positive")
		return core.Person{}, err
	}
	p.Normalize()
	if err = p.Validate(); err != nil {
		return core.Person{}, err
	}
	if err = s.store.UpdatePerson(ctx, p); err != nil {
		return core.Person{}, fmt.Errorf("update person %d: %w", p.ID, err)
	}
	s.notify(ctx, amqp.NewChangeMessage(amqp.KindPersonSaved, p.ID))
	return p, nil
}

// DeletePerson removes the person and all of their entries.
func (s *MoodService) DeletePerson(ctx context.Context, id int64) (err error) {
	defer s.track("delete_person")(&err)

	if err = s.store.DeletePerson(ctx, id); err != nil {
		return fmt.Errorf("delete person %d: %w", id, err)
	}
	s.notify(ctx, amqp.NewChangeMessage(amqp.KindPersonDeleted, id))
	return nil
}

// SaveEntry merges patch onto the stored entry for its (date, person).
// Fields the patch leaves nil keep their stored value.
func (s *MoodService) SaveEntry(ctx context.Context, patch core.EntryPatch) (entry core.MoodEntry, err error) {
	defer s.track("upsert_entry")(&err)

	if err = patch.Validate(); err != nil {
		return core.MoodEntry{}, err
	}
	entry, err = s.store.UpsertEntry(ctx, patch)
	if err != nil {
		return core.MoodEntry{}, fmt.Errorf("save entry %s/%d: %w", patch.Date, patch.PersonID, err)
	}

	s.logger.LogEntrySaved(ctx, entry.Date.String(), entry.PersonID, entry.Mood)
	s.notify(ctx, amqp.NewChangeMessage(amqp.KindEntryUpserted, entry.PersonID, entry.Date))
	return entry, nil
}

func (s *MoodService) GetEntry(ctx context.Context, date core.Date, personID int64) (core.MoodEntry, error) {
	return s.store.GetEntry(ctx, date, personID)
}

// ClearEntry deletes the entry for (date, person).
func (s *MoodService) ClearEntry(ctx context.Context, date core.Date, personID int64) (err error) {
	defer s.track("delete_entry")(&err)

	if err = date.Validate(); err != nil {
		return err
	}
	if err = s.store.DeleteEntry(ctx, date, personID); err != nil {
		return fmt.Errorf("delete entry %s/%d: %w", date, personID, err)
	}
	s.notify(ctx, amqp.NewChangeMessage(amqp.KindEntryDeleted, personID, date))
	return nil
}
