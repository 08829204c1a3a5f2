package usecase

import (
	"context"
	"fmt"
	"time"

	"timetrack/internal/aggregate"
	"timetrack/internal/domain"
	"timetrack/internal/ports"
)

// Dashboard builds the read models shown to admins and workers.
type Dashboard struct {
	Projects ports.ProjectRepository
	Workers  ports.WorkerRepository
	Entries  ports.TimeEntryRepository
	Location *time.Location // calendar used for month/year filters
}

// WorkerSummary is one worker's row on the admin dashboard.
type WorkerSummary struct {
	Worker      domain.Worker
	TotalHours  float64            // all time
	Period      []domain.TimeEntry // entries clocked in during the selected month
	PeriodHours float64
}

type AdminView struct {
	Project        domain.Project
	Workers        []domain.Worker
	Entries        []domain.TimeEntry
	ActiveSessions int
	Month          int
	Year           int
	Years          []int
	Summaries      []WorkerSummary
}

type WorkerView struct {
	Worker     domain.Worker
	Entries    []domain.TimeEntry
	Current    *domain.TimeEntry
	TotalHours float64
}

// Admin loads the acting admin's project with per-worker summaries for the
// given month and year.
func (d *Dashboard) Admin(ctx context.Context, actor domain.Session, month, year int) (AdminView, error) {
	if !actor.IsAdmin() {
		return AdminView{}, domain.ErrForbidden
	}
	if month < 1 || month > 12 {
		return AdminView{}, domain.ErrInvalidPeriod
	}
	p, err := d.Projects.GetProject(ctx, actor.ProjectID)
	if err != nil {
		return AdminView{}, fmt.Errorf("load project: %w", err)
	}
	workers, err := d.Workers.ListWorkers(ctx, p.ID)
	if err != nil {
		return AdminView{}, fmt.Errorf("load workers: %w", err)
	}
	entries, err := d.Entries.ListEntriesByProject(ctx, p.ID)
	if err != nil {
		return AdminView{}, fmt.Errorf("load entries: %w", err)
	}

	totals := aggregate.TotalHoursByWorker(entries)
	view := AdminView{
		Project:        p,
		Workers:        workers,
		Entries:        entries,
		ActiveSessions: aggregate.CountActive(entries),
		Month:          month,
		Year:           year,
		Years:          aggregate.Years(entries, d.loc()),
		Summaries:      make([]WorkerSummary, 0, len(workers)),
	}
	for _, w := range workers {
		period, err := aggregate.FilterPeriod(entries, w.ID, month, year, d.loc())
		if err != nil {
			return AdminView{}, err
		}
		view.Summaries = append(view.Summaries, WorkerSummary{
			Worker:      w,
			TotalHours:  totals[w.ID],
			Period:      period,
			PeriodHours: aggregate.SumHours(period),
		})
	}
	return view, nil
}

// Worker loads the acting worker's own entries and current session.
func (d *Dashboard) Worker(ctx context.Context, actor domain.Session) (WorkerView, error) {
	if !actor.IsWorker() {
		return WorkerView{}, domain.ErrForbidden
	}
	w, err := d.Workers.GetWorker(ctx, actor.WorkerID)
	if err != nil {
		return WorkerView{}, fmt.Errorf("load worker: %w", err)
	}
	entries, err := d.Entries.ListEntriesByWorker(ctx, w.ID)
	if err != nil {
		return WorkerView{}, fmt.Errorf("load entries: %w", err)
	}
	view := WorkerView{Worker: w, Entries: entries, TotalHours: aggregate.SumHours(entries)}
	for i := range entries {
		if entries[i].Open() {
			cur := entries[i]
			view.Current = &cur
			break
		}
	}
	return view, nil
}

func (d *Dashboard) loc() *time.Location {
	if d.Location == nil {
		return time.Local
	}
	return d.Location
}
