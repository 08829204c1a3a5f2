// Package sqldb implements the repositories on database/sql. The MySQL and
// SQLite adapters share it and only contribute their driver and error
// classification.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"timetrack/internal/domain"
	"timetrack/internal/migrate"
	"timetrack/internal/ports"
)

// Dialect adapts the store to one driver.
type Dialect struct {
	Name string
	// Classify maps a unique violation to domain.ErrSessionOpen or
	// domain.ErrDuplicate and returns nil for every other error.
	Classify func(err error) error
}

// Store implements ports.Store and ports.LegacyProjectSource.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
}

var (
	_ ports.Store               = (*Store)(nil)
	_ ports.LegacyProjectSource = (*Store)(nil)
)

func New(db *sql.DB, d Dialect, log *slog.Logger) *Store {
	return &Store{db: db, dialect: d, log: log}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies the embedded migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	return migrate.Run(ctx, s.db, s.dialect.Name, s.log)
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	}
	if s.dialect.Classify != nil {
		if mapped := s.dialect.Classify(err); mapped != nil {
			return mapped
		}
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

// Projects

const projectColumns = "id, name, description, password_hash, created_at, updated_at"

func scanProject(r scanner) (domain.Project, error) {
	var p domain.Project
	if err := r.Scan(&p.ID, &p.Name, &p.Description, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Project{}, err
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) CreateProject(ctx context.Context, p domain.Project) error {
	const q = `INSERT INTO projects (id, name, description, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, p.ID, p.Name, p.Description, p.PasswordHash, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	return s.translate(err)
}

func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	return p, s.translate(err)
}

func (s *Store) GetProjectByName(ctx context.Context, name string) (domain.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE name = ?", name))
	return p, s.translate(err)
}

func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Workers

const workerColumns = "id, project_id, name, email, worker_code, password_hash, created_at, updated_at"

func scanWorker(r scanner) (domain.Worker, error) {
	var w domain.Worker
	if err := r.Scan(&w.ID, &w.ProjectID, &w.Name, &w.Email, &w.Code, &w.PasswordHash, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return domain.Worker{}, err
	}
	w.CreatedAt, w.UpdatedAt = w.CreatedAt.UTC(), w.UpdatedAt.UTC()
	return w, nil
}

func (s *Store) CreateWorker(ctx context.Context, w domain.Worker) error {
	const q = `INSERT INTO workers (id, project_id, name, email, worker_code, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, w.ID, w.ProjectID, w.Name, w.Email, w.Code, w.PasswordHash, w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	return s.translate(err)
}

func (s *Store) GetWorker(ctx context.Context, id string) (domain.Worker, error) {
	w, err := scanWorker(s.db.QueryRowContext(ctx, "SELECT "+workerColumns+" FROM workers WHERE id = ?", id))
	return w, s.translate(err)
}

func (s *Store) GetWorkerByCode(ctx context.Context, projectID, code string) (domain.Worker, error) {
	w, err := scanWorker(s.db.QueryRowContext(ctx,
		"SELECT "+workerColumns+" FROM workers WHERE project_id = ? AND worker_code = ?", projectID, code))
	return w, s.translate(err)
}

func (s *Store) ListWorkers(ctx context.Context, projectID string) ([]domain.Worker, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+workerColumns+" FROM workers WHERE project_id = ? ORDER BY created_at DESC, id DESC", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Time entries

const entryColumns = "e.id, e.worker_id, e.project_id, e.clock_in, e.clock_out, e.work_description, e.total_hours, e.created_at, e.updated_at"

func scanEntry(r scanner, extra ...any) (domain.TimeEntry, error) {
	var (
		e     domain.TimeEntry
		out   sql.NullTime
		hours sql.NullFloat64
	)
	dest := append([]any{&e.ID, &e.WorkerID, &e.ProjectID, &e.ClockIn, &out, &e.Description, &hours, &e.CreatedAt, &e.UpdatedAt}, extra...)
	if err := r.Scan(dest...); err != nil {
		return domain.TimeEntry{}, err
	}
	e.ClockIn = e.ClockIn.UTC()
	e.CreatedAt, e.UpdatedAt = e.CreatedAt.UTC(), e.UpdatedAt.UTC()
	if out.Valid {
		t := out.Time.UTC()
		e.ClockOut = &t
	}
	if hours.Valid {
		h := hours.Float64
		e.TotalHours = &h
	}
	return e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func (s *Store) CreateEntry(ctx context.Context, e domain.TimeEntry) error {
	const q = `INSERT INTO time_entries
  (id, worker_id, project_id, clock_in, clock_out, work_description, total_hours, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		e.ID, e.WorkerID, e.ProjectID, e.ClockIn.UTC(), nullTime(e.ClockOut),
		e.Description, nullFloat(e.TotalHours), e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	return s.translate(err)
}

func (s *Store) GetEntry(ctx context.Context, id string) (domain.TimeEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM time_entries e WHERE e.id = ?", id))
	return e, s.translate(err)
}

func (s *Store) FindOpenEntry(ctx context.Context, workerID string) (domain.TimeEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM time_entries e WHERE e.worker_id = ? AND e.clock_out IS NULL", workerID))
	return e, s.translate(err)
}

func (s *Store) ListEntriesByWorker(ctx context.Context, workerID string) ([]domain.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM time_entries e WHERE e.worker_id = ? ORDER BY e.created_at DESC, e.id DESC", workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListEntriesByProject(ctx context.Context, projectID string) ([]domain.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+entryColumns+", w.name, w.worker_code"+
		" FROM time_entries e JOIN workers w ON w.id = e.worker_id"+
		" WHERE e.project_id = ? ORDER BY e.created_at DESC, e.id DESC", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.TimeEntry
	for rows.Next() {
		var name, code string
		e, err := scanEntry(rows, &name, &code)
		if err != nil {
			return nil, err
		}
		e.WorkerName, e.WorkerCode = name, code
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEntry(ctx context.Context, e domain.TimeEntry) error {
	const q = `UPDATE time_entries
SET clock_in = ?, clock_out = ?, work_description = ?, total_hours = ?, updated_at = ?
WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q,
		e.ClockIn.UTC(), nullTime(e.ClockOut), e.Description, nullFloat(e.TotalHours), e.UpdatedAt.UTC(), e.ID)
	if err != nil {
		return s.translate(err)
	}
	return affected(res, domain.ErrNotFound)
}

func (s *Store) UpdateOpenEntry(ctx context.Context, e domain.TimeEntry) error {
	const q = `UPDATE time_entries
SET clock_out = ?, work_description = ?, total_hours = ?, updated_at = ?
WHERE id = ? AND clock_out IS NULL`
	res, err := s.db.ExecContext(ctx, q,
		nullTime(e.ClockOut), e.Description, nullFloat(e.TotalHours), e.UpdatedAt.UTC(), e.ID)
	if err != nil {
		return s.translate(err)
	}
	return affected(res, domain.ErrSessionClosed)
}

// affected returns none when the statement matched no row.
func affected(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}

// ListLegacyProjects reads the legacy_projects landing table.
func (s *Store) ListLegacyProjects(ctx context.Context) ([]ports.LegacyProject, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, password_hash, created_at FROM legacy_projects ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query legacy projects: %w", err)
	}
	defer rows.Close()
	var out []ports.LegacyProject
	for rows.Next() {
		var (
			lp      ports.LegacyProject
			desc    sql.NullString
			created sql.NullTime
		)
		if err := rows.Scan(&lp.ID, &lp.Name, &desc, &lp.Password, &created); err != nil {
			return nil, err
		}
		lp.Description = desc.String
		if created.Valid {
			lp.CreatedAt = created.Time.UTC()
		}
		out = append(out, lp)
	}
	s.log.Debug("legacy projects read", slog.String("dialect", s.dialect.Name), slog.Int("count", len(out)))
	return out, rows.Err()
}
