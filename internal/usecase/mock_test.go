package usecase

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"timetrack/internal/domain"
	"timetrack/internal/ports"
)

// memStore implements ports.Store in memory, including the one open entry
// per worker rule. Set the err fields to make the matching call fail.
type memStore struct {
	mu       sync.Mutex
	projects map[string]domain.Project
	workers  map[string]domain.Worker
	entries  map[string]domain.TimeEntry

	createEntryErr error
	listEntriesErr error
	findOpenErr    error
}

func newMemStore() *memStore {
	return &memStore{
		projects: make(map[string]domain.Project),
		workers:  make(map[string]domain.Worker),
		entries:  make(map[string]domain.TimeEntry),
	}
}

var _ ports.Store = (*memStore)(nil)

func (m *memStore) Close() error { return nil }

func (m *memStore) CreateProject(ctx context.Context, p domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.projects {
		if existing.Name == p.Name || existing.ID == p.ID {
			return domain.ErrDuplicate
		}
	}
	m.projects[p.ID] = p
	return nil
}

func (m *memStore) GetProject(ctx context.Context, id string) (domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		return p, nil
	}
	return domain.Project{}, domain.ErrNotFound
}

func (m *memStore) GetProjectByName(ctx context.Context, name string) (domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.Name == name {
			return p, nil
		}
	}
	return domain.Project{}, domain.ErrNotFound
}

func (m *memStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Project
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) CreateWorker(ctx context.Context, w domain.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.workers {
		if existing.ProjectID == w.ProjectID && existing.Code == w.Code {
			return domain.ErrDuplicate
		}
	}
	m.workers[w.ID] = w
	return nil
}

func (m *memStore) GetWorker(ctx context.Context, id string) (domain.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.workers[id]; ok {
		return w, nil
	}
	return domain.Worker{}, domain.ErrNotFound
}

func (m *memStore) GetWorkerByCode(ctx context.Context, projectID, code string) (domain.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workers {
		if w.ProjectID == projectID && w.Code == code {
			return w, nil
		}
	}
	return domain.Worker{}, domain.ErrNotFound
}

func (m *memStore) ListWorkers(ctx context.Context, projectID string) ([]domain.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Worker
	for _, w := range m.workers {
		if w.ProjectID == projectID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// openConflict must be called with mu held.
func (m *memStore) openConflict(e domain.TimeEntry) bool {
	if !e.Open() {
		return false
	}
	for _, existing := range m.entries {
		if existing.WorkerID == e.WorkerID && existing.Open() && existing.ID != e.ID {
			return true
		}
	}
	return false
}

func (m *memStore) CreateEntry(ctx context.Context, e domain.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createEntryErr != nil {
		return m.createEntryErr
	}
	if _, ok := m.entries[e.ID]; ok {
		return domain.ErrDuplicate
	}
	if m.openConflict(e) {
		return domain.ErrSessionOpen
	}
	m.entries[e.ID] = e
	return nil
}

func (m *memStore) GetEntry(ctx context.Context, id string) (domain.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return domain.TimeEntry{}, domain.ErrNotFound
}

func (m *memStore) FindOpenEntry(ctx context.Context, workerID string) (domain.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findOpenErr != nil {
		return domain.TimeEntry{}, m.findOpenErr
	}
	for _, e := range m.entries {
		if e.WorkerID == workerID && e.Open() {
			return e, nil
		}
	}
	return domain.TimeEntry{}, domain.ErrNotFound
}

func (m *memStore) list(keep func(domain.TimeEntry) bool) []domain.TimeEntry {
	var out []domain.TimeEntry
	for _, e := range m.entries {
		if keep(e) {
			if w, ok := m.workers[e.WorkerID]; ok {
				e.WorkerName, e.WorkerCode = w.Name, w.Code
			}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memStore) ListEntriesByWorker(ctx context.Context, workerID string) ([]domain.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listEntriesErr != nil {
		return nil, m.listEntriesErr
	}
	return m.list(func(e domain.TimeEntry) bool { return e.WorkerID == workerID }), nil
}

func (m *memStore) ListEntriesByProject(ctx context.Context, projectID string) ([]domain.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listEntriesErr != nil {
		return nil, m.listEntriesErr
	}
	return m.list(func(e domain.TimeEntry) bool { return e.ProjectID == projectID }), nil
}

func (m *memStore) UpdateEntry(ctx context.Context, e domain.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		return domain.ErrNotFound
	}
	if m.openConflict(e) {
		return domain.ErrSessionOpen
	}
	e.WorkerName, e.WorkerCode = "", ""
	m.entries[e.ID] = e
	return nil
}

func (m *memStore) UpdateOpenEntry(ctx context.Context, e domain.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.entries[e.ID]
	if !ok || !cur.Open() {
		return domain.ErrSessionClosed
	}
	cur.ClockOut, cur.TotalHours = e.ClockOut, e.TotalHours
	cur.Description, cur.UpdatedAt = e.Description, e.UpdatedAt
	m.entries[e.ID] = cur
	return nil
}

// plainHasher keeps tests fast; bcrypt is covered in internal/auth.
type plainHasher struct {
	mu     sync.Mutex
	hashed int
}

func (h *plainHasher) Hash(password string) (string, error) {
	h.mu.Lock()
	h.hashed++
	h.mu.Unlock()
	return "hash:" + password, nil
}

func (h *plainHasher) Verify(hash, password string) error {
	if !strings.HasPrefix(hash, "hash:") || hash != "hash:"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.EntryEvent
	err    error
}

func (p *recordingPublisher) PublishEntryEvent(ctx context.Context, ev domain.EntryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// seqIDs returns deterministic, increasing IDs.
func seqIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + string(rune('a'+n-1))
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture is one project with two workers on a shared store.
type fixture struct {
	store   *memStore
	clock   *fakeClock
	events  *recordingPublisher
	ledger  *Ledger
	project domain.Project
	alice   domain.Worker
	bob     domain.Worker
}

func newFixture() *fixture {
	f := &fixture{store: newMemStore(), clock: newFakeClock(), events: &recordingPublisher{}}
	created := f.clock.Now()
	f.project = domain.Project{ID: "p1", Name: "Acme", PasswordHash: "hash:secret", CreatedAt: created}
	f.alice = domain.Worker{ID: "w1", ProjectID: "p1", Name: "Alice", Code: "A1", PasswordHash: "hash:alice", CreatedAt: created}
	f.bob = domain.Worker{ID: "w2", ProjectID: "p1", Name: "Bob", Code: "B2", PasswordHash: "hash:bob", CreatedAt: created.Add(time.Second)}
	_ = f.store.CreateProject(context.Background(), f.project)
	_ = f.store.CreateWorker(context.Background(), f.alice)
	_ = f.store.CreateWorker(context.Background(), f.bob)
	f.ledger = &Ledger{
		Log:     discardLogger(),
		Workers: f.store,
		Entries: f.store,
		Events:  f.events,
		Now:     f.clock.Now,
		NewID:   seqIDs("e-"),
	}
	return f
}

func workerSession(w domain.Worker) domain.Session {
	return domain.Session{UserType: domain.UserWorker, ProjectID: w.ProjectID, WorkerID: w.ID}
}

func adminSession(projectID string) domain.Session {
	return domain.Session{UserType: domain.UserAdmin, ProjectID: projectID}
}
