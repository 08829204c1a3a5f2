// Package postgres implements the repositories on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"timetrack/internal/domain"
	"timetrack/internal/migrate"
	"timetrack/internal/ports"
)

const (
	uniqueViolation = "23505"
	openEntryIndex  = "uq_time_entries_open"
)

type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var (
	_ ports.Store               = (*Store)(nil)
	_ ports.LegacyProjectSource = (*Store)(nil)
)

// NewPool connects to Postgres and verifies the connection.
func NewPool(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres: DSN is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	log.Info("postgres connected",
		slog.String("host", cfg.ConnConfig.Host),
		slog.String("db", cfg.ConnConfig.Database),
	)
	return &Store{pool: pool, log: log}, nil
}

// Migrate applies the embedded Postgres migrations through a database/sql
// handle over the same pool.
func (s *Store) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	return migrate.Run(ctx, db, migrate.Postgres, s.log)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == openEntryIndex {
			return domain.ErrSessionOpen
		}
		return domain.ErrDuplicate
	}
	return err
}

const projectColumns = "id, name, description, password_hash, created_at, updated_at"

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Project{}, err
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) CreateProject(ctx context.Context, p domain.Project) error {
	const q = `INSERT INTO projects (id, name, description, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, q, p.ID, p.Name, p.Description, p.PasswordHash, p.CreatedAt, p.UpdatedAt)
	return translate(err)
}

func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = $1", id))
	return p, translate(err)
}

func (s *Store) GetProjectByName(ctx context.Context, name string) (domain.Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx, "SELECT "+projectColumns+" FROM projects WHERE name = $1", name))
	return p, translate(err)
}

func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at DESC, id DESC")
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

const workerColumns = "id, project_id, name, email, worker_code, password_hash, created_at, updated_at"

func scanWorker(row pgx.Row) (domain.Worker, error) {
	var w domain.Worker
	if err := row.Scan(&w.ID, &w.ProjectID, &w.Name, &w.Email, &w.Code, &w.PasswordHash, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return domain.Worker{}, err
	}
	w.CreatedAt, w.UpdatedAt = w.CreatedAt.UTC(), w.UpdatedAt.UTC()
	return w, nil
}

func (s *Store) CreateWorker(ctx context.Context, w domain.Worker) error {
	const q = `INSERT INTO workers (id, project_id, name, email, worker_code, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, q, w.ID, w.ProjectID, w.Name, w.Email, w.Code, w.PasswordHash, w.CreatedAt, w.UpdatedAt)
	return translate(err)
}

func (s *Store) GetWorker(ctx context.Context, id string) (domain.Worker, error) {
	w, err := scanWorker(s.pool.QueryRow(ctx, "SELECT "+workerColumns+" FROM workers WHERE id = $1", id))
	return w, translate(err)
}

func (s *Store) GetWorkerByCode(ctx context.Context, projectID, code string) (domain.Worker, error) {
	w, err := scanWorker(s.pool.QueryRow(ctx,
		"SELECT "+workerColumns+" FROM workers WHERE project_id = $1 AND worker_code = $2", projectID, code))
	return w, translate(err)
}

func (s *Store) ListWorkers(ctx context.Context, projectID string) ([]domain.Worker, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+workerColumns+" FROM workers WHERE project_id = $1 ORDER BY created_at DESC, id DESC", projectID)
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

const entryColumns = "e.id, e.worker_id, e.project_id, e.clock_in, e.clock_out, e.work_description, e.total_hours, e.created_at, e.updated_at"

func scanEntry(row pgx.Row, extra ...any) (domain.TimeEntry, error) {
	var e domain.TimeEntry
	dest := append([]any{&e.ID, &e.WorkerID, &e.ProjectID, &e.ClockIn, &e.ClockOut, &e.Description, &e.TotalHours, &e.CreatedAt, &e.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.TimeEntry{}, err
	}
	e.ClockIn = e.ClockIn.UTC()
	e.CreatedAt, e.UpdatedAt = e.CreatedAt.UTC(), e.UpdatedAt.UTC()
	if e.ClockOut != nil {
		t := e.ClockOut.UTC()
		e.ClockOut = &t
	}
	return e, nil
}

func (s *Store) CreateEntry(ctx context.Context, e domain.TimeEntry) error {
	const q = `INSERT INTO time_entries
  (id, worker_id, project_id, clock_in, clock_out, work_description, total_hours, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, q,
		e.ID, e.WorkerID, e.ProjectID, e.ClockIn, e.ClockOut, e.Description, e.TotalHours, e.CreatedAt, e.UpdatedAt)
	return translate(err)
}

func (s *Store) GetEntry(ctx context.Context, id string) (domain.TimeEntry, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx, "SELECT "+entryColumns+" FROM time_entries e WHERE e.id = $1", id))
	return e, translate(err)
}

func (s *Store) FindOpenEntry(ctx context.Context, workerID string) (domain.TimeEntry, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx,
		"SELECT "+entryColumns+" FROM time_entries e WHERE e.worker_id = $1 AND e.clock_out IS NULL", workerID))
	return e, translate(err)
}

func (s *Store) ListEntriesByWorker(ctx context.Context, workerID string) ([]domain.TimeEntry, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+entryColumns+" FROM time_entries e WHERE e.worker_id = $1 ORDER BY e.created_at DESC, e.id DESC", workerID)
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
	rows, err := s.pool.Query(ctx, "SELECT "+entryColumns+", w.name, w.worker_code"+
		" FROM time_entries e JOIN workers w ON w.id = e.worker_id"+
		" WHERE e.project_id = $1 ORDER BY e.created_at DESC, e.id DESC", projectID)
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
SET clock_in = $1, clock_out = $2, work_description = $3, total_hours = $4, updated_at = $5
WHERE id = $6`
	tag, err := s.pool.Exec(ctx, q, e.ClockIn, e.ClockOut, e.Description, e.TotalHours, e.UpdatedAt, e.ID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateOpenEntry(ctx context.Context, e domain.TimeEntry) error {
	const q = `UPDATE time_entries
SET clock_out = $1, work_description = $2, total_hours = $3, updated_at = $4
WHERE id = $5 AND clock_out IS NULL`
	tag, err := s.pool.Exec(ctx, q, e.ClockOut, e.Description, e.TotalHours, e.UpdatedAt, e.ID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionClosed
	}
	return nil
}

func (s *Store) ListLegacyProjects(ctx context.Context) ([]ports.LegacyProject, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, name, COALESCE(description, ''), password_hash, created_at FROM legacy_projects ORDER BY created_at NULLS FIRST, id")
	if err != nil {
		return nil, fmt.Errorf("query legacy projects: %w", err)
	}
	defer rows.Close()
	var out []ports.LegacyProject
	for rows.Next() {
		var (
			lp      ports.LegacyProject
			created *time.Time
		)
		if err := rows.Scan(&lp.ID, &lp.Name, &lp.Description, &lp.Password, &created); err != nil {
			return nil, err
		}
		if created != nil {
			lp.CreatedAt = created.UTC()
		}
		out = append(out, lp)
	}
	return out, rows.Err()
}
