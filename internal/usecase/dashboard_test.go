package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"timetrack/internal/domain"
)

// seedEntry stores a closed entry for w, or an open one when hours is 0.
func seedEntry(t *testing.T, f *fixture, id string, w domain.Worker, in time.Time, hours float64) {
	t.Helper()
	e := domain.TimeEntry{ID: id, WorkerID: w.ID, ProjectID: w.ProjectID, CreatedAt: in}
	var out *time.Time
	if hours > 0 {
		o := in.Add(time.Duration(hours * float64(time.Hour)))
		out = &o
	}
	if err := e.SetWindow(in, out); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	if err := f.store.CreateEntry(context.Background(), e); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestAdminDashboard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	dec := time.Date(2023, 12, 20, 9, 0, 0, 0, time.UTC)
	jan := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	seedEntry(t, f, "e1", f.alice, dec, 2)
	seedEntry(t, f, "e2", f.alice, jan, 1.5)
	seedEntry(t, f, "e3", f.alice, jan.Add(24*time.Hour), 0.25)
	seedEntry(t, f, "e4", f.bob, jan.Add(48*time.Hour), 0)

	d := &Dashboard{Projects: f.store, Workers: f.store, Entries: f.store, Location: time.UTC}
	view, err := d.Admin(ctx, adminSession("p1"), 1, 2024)
	if err != nil {
		t.Fatalf("Admin: %v", err)
	}
	if view.Project.ID != "p1" || len(view.Workers) != 2 || len(view.Entries) != 4 {
		t.Fatalf("view = %+v", view)
	}
	if view.ActiveSessions != 1 {
		t.Errorf("active = %d, want 1", view.ActiveSessions)
	}
	if len(view.Years) != 2 || view.Years[0] != 2024 || view.Years[1] != 2023 {
		t.Errorf("years = %v, want [2024 2023]", view.Years)
	}

	byWorker := map[string]WorkerSummary{}
	for _, s := range view.Summaries {
		byWorker[s.Worker.ID] = s
	}
	alice := byWorker[f.alice.ID]
	if alice.TotalHours != 3.75 {
		t.Errorf("alice total = %v, want 3.75", alice.TotalHours)
	}
	if len(alice.Period) != 2 || alice.PeriodHours != 1.75 {
		t.Errorf("alice january = %d entries, %v hours", len(alice.Period), alice.PeriodHours)
	}
	if bob := byWorker[f.bob.ID]; bob.TotalHours != 0 || len(bob.Period) != 1 {
		t.Errorf("bob = %+v", bob)
	}
}

func TestAdminDashboardErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := &Dashboard{Projects: f.store, Workers: f.store, Entries: f.store}

	if _, err := d.Admin(ctx, workerSession(f.alice), 1, 2024); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("worker err = %v, want ErrForbidden", err)
	}
	if _, err := d.Admin(ctx, adminSession("p1"), 13, 2024); !errors.Is(err, domain.ErrInvalidPeriod) {
		t.Errorf("month 13 err = %v, want ErrInvalidPeriod", err)
	}
	boom := errors.New("boom")
	f.store.listEntriesErr = boom
	if _, err := d.Admin(ctx, adminSession("p1"), 1, 2024); !errors.Is(err, boom) {
		t.Errorf("store err = %v, want boom", err)
	}
}

func TestWorkerDashboard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	jan := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	seedEntry(t, f, "e1", f.alice, jan, 2)
	seedEntry(t, f, "e2", f.alice, jan.Add(24*time.Hour), 0)
	seedEntry(t, f, "e3", f.bob, jan, 1)

	d := &Dashboard{Projects: f.store, Workers: f.store, Entries: f.store}
	view, err := d.Worker(ctx, workerSession(f.alice))
	if err != nil {
		t.Fatalf("Worker: %v", err)
	}
	if len(view.Entries) != 2 || view.Entries[0].ID != "e2" {
		t.Errorf("entries = %+v, want newest first", view.Entries)
	}
	if view.Current == nil || view.Current.ID != "e2" {
		t.Errorf("current = %+v, want e2", view.Current)
	}
	if view.TotalHours != 2 {
		t.Errorf("total = %v, want 2", view.TotalHours)
	}
	if _, err := d.Worker(ctx, adminSession("p1")); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("admin err = %v, want ErrForbidden", err)
	}
}
