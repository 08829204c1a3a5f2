package ports

import (
	"context"
	"time"

	"timetrack/internal/domain"
)

// ProjectRepository persists projects. Lookups that match nothing return
// domain.ErrNotFound; a duplicate name returns domain.ErrDuplicate.
type ProjectRepository interface {
	CreateProject(ctx context.Context, p domain.Project) error
	GetProject(ctx context.Context, id string) (domain.Project, error)
	GetProjectByName(ctx context.Context, name string) (domain.Project, error)
	// ListProjects returns all projects, newest first.
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// WorkerRepository persists workers. Worker codes are unique per project.
type WorkerRepository interface {
	CreateWorker(ctx context.Context, w domain.Worker) error
	GetWorker(ctx context.Context, id string) (domain.Worker, error)
	GetWorkerByCode(ctx context.Context, projectID, code string) (domain.Worker, error)
	// ListWorkers returns the project's workers, newest first.
	ListWorkers(ctx context.Context, projectID string) ([]domain.Worker, error)
}

// TimeEntryRepository persists time entries.
//
// Implementations must reject any write that leaves a worker with two open
// entries by returning domain.ErrSessionOpen.
type TimeEntryRepository interface {
	CreateEntry(ctx context.Context, e domain.TimeEntry) error
	GetEntry(ctx context.Context, id string) (domain.TimeEntry, error)
	// FindOpenEntry returns the worker's open entry or domain.ErrNotFound.
	FindOpenEntry(ctx context.Context, workerID string) (domain.TimeEntry, error)
	// ListEntriesByWorker returns the worker's entries, newest first.
	ListEntriesByWorker(ctx context.Context, workerID string) ([]domain.TimeEntry, error)
	// ListEntriesByProject returns the project's entries, newest first, with
	// WorkerName and WorkerCode filled in.
	ListEntriesByProject(ctx context.Context, projectID string) ([]domain.TimeEntry, error)
	// UpdateEntry overwrites the mutable fields of the entry with e.ID.
	UpdateEntry(ctx context.Context, e domain.TimeEntry) error
	// UpdateOpenEntry writes clock out, hours and description only while the
	// stored entry is still open; otherwise it returns domain.ErrSessionClosed.
	UpdateOpenEntry(ctx context.Context, e domain.TimeEntry) error
}

// Store bundles the three tables the ledger works against.
type Store interface {
	ProjectRepository
	WorkerRepository
	TimeEntryRepository
	Close() error
}

// LegacyProjectSource reads rows of the legacy duplicate projects table.
// Passwords in that table are stored in plain text.
type LegacyProjectSource interface {
	ListLegacyProjects(ctx context.Context) ([]LegacyProject, error)
}

type LegacyProject struct {
	ID          string
	Name        string
	Description string
	Password    string
	CreatedAt   time.Time
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns domain.ErrInvalidCredentials on mismatch.
	Verify(hash, password string) error
}

// TokenIssuer turns sessions into signed tokens and back.
type TokenIssuer interface {
	Issue(s domain.Session) (string, error)
	Parse(token string) (domain.Session, error)
}

// EventPublisher fans time-entry changes out to other systems.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, ev domain.EntryEvent) error
}

// Clock abstracts time.Now for the ledger.
type Clock func() time.Time
