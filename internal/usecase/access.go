package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"timetrack/internal/domain"
	"timetrack/internal/ports"
)

// Access manages projects, workers and login.
type Access struct {
	Log      *slog.Logger
	Projects ports.ProjectRepository
	Workers  ports.WorkerRepository
	Hasher   ports.PasswordHasher
	Now      ports.Clock   // optional
	NewID    func() string // optional

	dummyOnce sync.Once
	dummyHash string
}

type ProjectInput struct {
	Name        string
	Description string
	Password    string
}

type WorkerInput struct {
	Name     string
	Email    string
	Code     string
	Password string
}

// CreateProject registers a new project whose admin password is hashed.
func (a *Access) CreateProject(ctx context.Context, in ProjectInput) (domain.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Password == "" {
		return domain.Project{}, fmt.Errorf("%w: project name and password are required", domain.ErrValidation)
	}
	hash, err := a.Hasher.Hash(in.Password)
	if err != nil {
		return domain.Project{}, err
	}
	now := stamp(a.Now)
	p := domain.Project{
		ID:           newID(a.NewID),
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.Projects.CreateProject(ctx, p); err != nil {
		return domain.Project{}, fmt.Errorf("create project: %w", err)
	}
	a.Log.Info("project created", slog.String("project_id", p.ID), slog.String("name", p.Name))
	return p, nil
}

// ListProjects returns every project, newest first.
func (a *Access) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return a.Projects.ListProjects(ctx)
}

// AddWorker adds a worker to the acting admin's project.
func (a *Access) AddWorker(ctx context.Context, actor domain.Session, in WorkerInput) (domain.Worker, error) {
	if !actor.IsAdmin() {
		return domain.Worker{}, domain.ErrForbidden
	}
	name, code := strings.TrimSpace(in.Name), strings.TrimSpace(in.Code)
	if name == "" || code == "" || in.Password == "" {
		return domain.Worker{}, fmt.Errorf("%w: worker name, code and password are required", domain.ErrValidation)
	}
	hash, err := a.Hasher.Hash(in.Password)
	if err != nil {
		return domain.Worker{}, err
	}
	now := stamp(a.Now)
	w := domain.Worker{
		ID:           newID(a.NewID),
		ProjectID:    actor.ProjectID,
		Name:         name,
		Email:        strings.TrimSpace(in.Email),
		Code:         code,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.Workers.CreateWorker(ctx, w); err != nil {
		return domain.Worker{}, fmt.Errorf("add worker: %w", err)
	}
	a.Log.Info("worker added", slog.String("project_id", w.ProjectID), slog.String("worker_id", w.ID))
	return w, nil
}

// ListWorkers returns the acting admin's workers, newest first.
func (a *Access) ListWorkers(ctx context.Context, actor domain.Session) ([]domain.Worker, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return a.Workers.ListWorkers(ctx, actor.ProjectID)
}

// AdminLogin checks the project password. An unknown project and a wrong
// password both yield domain.ErrInvalidCredentials.
func (a *Access) AdminLogin(ctx context.Context, projectName, password string) (domain.Session, error) {
	p, err := a.Projects.GetProjectByName(ctx, strings.TrimSpace(projectName))
	if err != nil {
		return domain.Session{}, a.rejectLookup(err, password)
	}
	if err := a.Hasher.Verify(p.PasswordHash, password); err != nil {
		return domain.Session{}, a.rejectVerify(err)
	}
	a.Log.Info("admin logged in", slog.String("project_id", p.ID))
	return domain.Session{UserType: domain.UserAdmin, ProjectID: p.ID}, nil
}

// WorkerLogin checks a worker's password within the named project.
func (a *Access) WorkerLogin(ctx context.Context, projectName, code, password string) (domain.Session, error) {
	p, err := a.Projects.GetProjectByName(ctx, strings.TrimSpace(projectName))
	if err != nil {
		return domain.Session{}, a.rejectLookup(err, password)
	}
	w, err := a.Workers.GetWorkerByCode(ctx, p.ID, strings.TrimSpace(code))
	if err != nil {
		return domain.Session{}, a.rejectLookup(err, password)
	}
	if err := a.Hasher.Verify(w.PasswordHash, password); err != nil {
		return domain.Session{}, a.rejectVerify(err)
	}
	a.Log.Info("worker logged in", slog.String("project_id", p.ID), slog.String("worker_id", w.ID))
	return domain.Session{UserType: domain.UserWorker, ProjectID: p.ID, WorkerID: w.ID}, nil
}

// ImportLegacyProjects copies projects from the legacy table that are not
// present yet, hashing their plain text passwords. It returns the number of
// imported projects.
func (a *Access) ImportLegacyProjects(ctx context.Context, src ports.LegacyProjectSource) (int, error) {
	legacy, err := src.ListLegacyProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("list legacy projects: %w", err)
	}
	imported := 0
	for _, lp := range legacy {
		name := strings.TrimSpace(lp.Name)
		if name == "" {
			continue
		}
		_, err := a.Projects.GetProjectByName(ctx, name)
		if err == nil {
			a.Log.Debug("legacy project already present", slog.String("name", name))
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return imported, err
		}
		id := lp.ID
		if _, err := a.Projects.GetProject(ctx, id); id == "" || !errors.Is(err, domain.ErrNotFound) {
			id = newID(a.NewID)
		}
		hash, err := a.Hasher.Hash(lp.Password)
		if err != nil {
			return imported, err
		}
		now := stamp(a.Now)
		created := lp.CreatedAt
		if created.IsZero() {
			created = now
		}
		p := domain.Project{
			ID:           id,
			Name:         name,
			Description:  lp.Description,
			PasswordHash: hash,
			CreatedAt:    created.UTC(),
			UpdatedAt:    now,
		}
		if err := a.Projects.CreateProject(ctx, p); err != nil {
			return imported, fmt.Errorf("import %q: %w", name, err)
		}
		imported++
		a.Log.Info("legacy project imported", slog.String("project_id", p.ID), slog.String("name", name))
	}
	return imported, nil
}

func (a *Access) rejectLookup(err error, password string) error {
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("login: %w", err)
	}
	// Spend the same bcrypt work as a real comparison.
	_ = a.Hasher.Verify(a.dummy(), password)
	return domain.ErrInvalidCredentials
}

func (a *Access) rejectVerify(err error) error {
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return domain.ErrInvalidCredentials
	}
	return fmt.Errorf("login: %w", err)
}

func (a *Access) dummy() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.Hasher.Hash("timetrack-dummy-password")
	})
	return a.dummyHash
}
