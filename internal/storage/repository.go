package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"moodcal/internal/core"
	"moodcal/internal/ports"

	_ "modernc.org/sqlite"
)

// Connection pragmas. Immediate transactions take the write lock up
// front so read-modify-write upserts cannot interleave.
const dsnParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_txlock=immediate"

type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + dsnParams
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SchemaVersion is the migration version applied at construction.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreatePerson implements ports.PersonStore
func (r *SQLiteRepository) CreatePerson(ctx context.Context, p core.Person) (core.Person, error) {
	moods, err := encodeMoods(p.Moods)
	if err != nil {
		return core.Person{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO persons (name, color, moods) VALUES (?, ?, ?)`,
		p.Name, p.Color, moods)
	if err != nil {
		return core.Person{}, fmt.Errorf("insert person: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Person{}, fmt.Errorf("read person id: %w", err)
	}
	p.ID = id

	slog.InfoContext(ctx, "Person saved to SQLite", "person_id", id, "name", p.Name)
	return p, nil
}

// GetPerson implements ports.PersonStore
func (r *SQLiteRepository) GetPerson(ctx context.Context, id int64) (core.Person, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, color, moods FROM persons WHERE id = ?`, id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Person{}, fmt.Errorf("get person %d: %w", id, core.ErrPersonNotFound)
	}
	if err != nil {
		return core.Person{}, fmt.Errorf("get person %d: %w", id, err)
	}
	return p, nil
}

// ListPersons implements ports.PersonStore
func (r *SQLiteRepository) ListPersons(ctx context.Context) ([]core.Person, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color, moods FROM persons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	persons := []core.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return persons, nil
}

// UpdatePerson implements ports.PersonStore
func (r *SQLiteRepository) UpdatePerson(ctx context.Context, p core.Person) error {
	moods, err := encodeMoods(p.Moods)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE persons SET name = ?, color = ?, moods = ? WHERE id = ?`,
		p.Name, p.Color, moods, p.ID)
	if err != nil {
		return fmt.Errorf("update person %d: %w", p.ID, err)
	}
	if err := requireAffected(res, core.ErrPersonNotFound); err != nil {
		return fmt.Errorf("update person %d: %w", p.ID, err)
	}
	return nil
}

// DeletePerson implements ports.PersonStore. Entries are removed in the
// same transaction so no orphan survives even with foreign keys off.
func (r *SQLiteRepository) DeletePerson(ctx context.Context, id int64) error {
	var removed int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM mood_entries WHERE person_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete entries of person %d: %w", id, err)
		}
		removed, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete person %d: %w", id, err)
		}
		if err := requireAffected(res, core.ErrPersonNotFound); err != nil {
			return fmt.Errorf("delete person %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Person deleted from SQLite", "person_id", id, "entries_removed", removed)
	return nil
}

// UpsertEntry implements ports.EntryStore
func (r *SQLiteRepository) UpsertEntry(ctx context.Context, patch core.EntryPatch) (core.MoodEntry, error) {
	var saved core.MoodEntry
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := personExists(ctx, tx, patch.PersonID); err != nil {
			return err
		}

		existing, err := getEntry(ctx, tx, patch.Date, patch.PersonID)
		if err != nil && !errors.Is(err, core.ErrEntryNotFound) {
			return err
		}

		merged, err := patch.Apply(existing)
		if err != nil {
			return err
		}
		if err := upsertEntry(ctx, tx, merged); err != nil {
			return err
		}
		saved = merged
		return nil
	})
	if err != nil {
		return core.MoodEntry{}, err
	}
	return saved, nil
}

// GetEntry implements ports.EntryStore
func (r *SQLiteRepository) GetEntry(ctx context.Context, date core.Date, personID int64) (core.MoodEntry, error) {
	e, err := getEntry(ctx, r.db, date, personID)
	if err != nil {
		return core.MoodEntry{}, err
	}
	return *e, nil
}

// DeleteEntry implements ports.EntryStore
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, date core.Date, personID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM mood_entries WHERE date = ? AND person_id = ?`, date.String(), personID)
	if err != nil {
		return fmt.Errorf("delete entry %s/%d: %w", date, personID, err)
	}
	if err := requireAffected(res, core.ErrEntryNotFound); err != nil {
		return fmt.Errorf("delete entry %s/%d: %w", date, personID, err)
	}
	return nil
}

// ListEntries implements ports.EntryStore
func (r *SQLiteRepository) ListEntries(ctx context.Context, filter core.EntryFilter) ([]core.MoodEntry, error) {
	var (
		where []string
		args  []any
	)
	if !filter.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, filter.To.String())
	}
	if filter.PersonID != 0 {
		where = append(where, "person_id = ?")
		args = append(args, filter.PersonID)
	}

	query := `SELECT date, person_id, mood, notes FROM mood_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, person_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []core.MoodEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// ApplyMoods implements ports.EntryStore
func (r *SQLiteRepository) ApplyMoods(ctx context.Context, personID int64, assignments []core.Assignment) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := personExists(ctx, tx, personID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO mood_entries (date, person_id, mood, notes) VALUES (?, ?, ?, '')
			ON CONFLICT(date, person_id) DO UPDATE SET mood = excluded.mood`)
		if err != nil {
			return fmt.Errorf("prepare cycle upsert: %w", err)
		}
		defer stmt.Close()

		for _, a := range assignments {
			if _, err := stmt.ExecContext(ctx, a.Date.String(), personID, a.Mood); err != nil {
				return fmt.Errorf("apply mood on %s: %w", a.Date, err)
			}
		}
		return nil
	})
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func personExists(ctx context.Context, q queryer, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM persons WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("person %d: %w", id, core.ErrPersonNotFound)
	}
	if err != nil {
		return fmt.Errorf("check person %d: %w", id, err)
	}
	return nil
}

func getEntry(ctx context.Context, q queryer, date core.Date, personID int64) (*core.MoodEntry, error) {
	row := q.QueryRowContext(ctx,
		`SELECT date, person_id, mood, notes FROM mood_entries WHERE date = ? AND person_id = ?`,
		date.String(), personID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get entry %s/%d: %w", date, personID, core.ErrEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %s/%d: %w", date, personID, err)
	}
	return &e, nil
}

func upsertEntry(ctx context.Context, tx *sql.Tx, e core.MoodEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO mood_entries (date, person_id, mood, notes) VALUES (?, ?, ?, ?)
		ON CONFLICT(date, person_id) DO UPDATE SET mood = excluded.mood, notes = excluded.notes`,
		e.Date.String(), e.PersonID, e.Mood, e.Notes)
	if err != nil {
		return fmt.Errorf("upsert entry %s/%d: %w", e.Date, e.PersonID, err)
	}
	return nil
}

func scanPerson(s scanner) (core.Person, error) {
	var (
		p     core.Person
		moods string
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Color, &moods); err != nil {
		return core.Person{}, err
	}
	if err := json.Unmarshal([]byte(moods), &p.Moods); err != nil {
		return core.Person{}, fmt.Errorf("decode moods of person %d: %w", p.ID, err)
	}
	if p.Moods == nil {
		p.Moods = []string{}
	}
	return p, nil
}

func scanEntry(s scanner) (core.MoodEntry, error) {
	var (
		e    core.MoodEntry
		date string
	)
	if err := s.Scan(&date, &e.PersonID, &e.Mood, &e.Notes); err != nil {
		return core.MoodEntry{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.MoodEntry{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	e.Date = d
	return e, nil
}

func encodeMoods(moods []string) (string, error) {
	if moods == nil {
		moods = []string{}
	}
	b, err := json.Marshal(moods)
	if err != nil {
		return "", fmt.Errorf("encode moods: %w", err)
	}
	return string(b), nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
