package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"timetrack/internal/domain"
	"timetrack/internal/ports"
)

// Ledger owns the lifecycle of time entries: clock in, clock out, edits and
// administrative inserts.
type Ledger struct {
	Log     *slog.Logger
	Workers ports.WorkerRepository
	Entries ports.TimeEntryRepository
	Events  ports.EventPublisher // optional
	Now     ports.Clock          // optional, defaults to time.Now
	NewID   func() string        // optional, defaults to uuid
}

// EntryEdit lists the fields an edit replaces; nil fields are kept.
// Reopen clears the clock out and cannot be combined with ClockOut.
type EntryEdit struct {
	ClockIn     *time.Time
	ClockOut    *time.Time
	Reopen      bool
	Description *string
}

// NewEntry describes an administratively inserted entry. A nil ClockIn
// means now; a nil ClockOut leaves the entry open.
type NewEntry struct {
	ClockIn     *time.Time
	ClockOut    *time.Time
	Description string
}

// ClockIn opens a new session for the acting worker.
func (l *Ledger) ClockIn(ctx context.Context, actor domain.Session, description string) (domain.TimeEntry, error) {
	if !actor.IsWorker() {
		return domain.TimeEntry{}, domain.ErrForbidden
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.TimeEntry{}, domain.ErrDescriptionRequired
	}
	w, err := l.Workers.GetWorker(ctx, actor.WorkerID)
	if err != nil {
		return domain.TimeEntry{}, fmt.Errorf("load worker: %w", err)
	}
	if err := l.ensureNoOpenEntry(ctx, w.ID, ""); err != nil {
		return domain.TimeEntry{}, err
	}

	now := stamp(l.Now)
	e := domain.TimeEntry{
		ID:          newID(l.NewID),
		WorkerID:    w.ID,
		ProjectID:   w.ProjectID,
		ClockIn:     now,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.Entries.CreateEntry(ctx, e); err != nil {
		return domain.TimeEntry{}, fmt.Errorf("clock in: %w", err)
	}
	l.Log.Info("clocked in", slog.String("worker_id", w.ID), slog.String("entry_id", e.ID))
	l.publish(ctx, domain.EventClockedIn, e, actor)
	return e, nil
}

// ClockOut closes an open entry at the current time. A non-nil description
// replaces the stored one.
func (l *Ledger) ClockOut(ctx context.Context, actor domain.Session, entryID string, description *string) (domain.TimeEntry, error) {
	e, err := l.load(ctx, actor, entryID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if !e.Open() {
		return domain.TimeEntry{}, domain.ErrSessionClosed
	}
	if description != nil {
		e.Description = strings.TrimSpace(*description)
	}
	now := stamp(l.Now)
	if err := e.Close(now); err != nil {
		return domain.TimeEntry{}, err
	}
	e.UpdatedAt = now
	if err := l.Entries.UpdateOpenEntry(ctx, e); err != nil {
		return domain.TimeEntry{}, fmt.Errorf("clock out: %w", err)
	}
	l.Log.Info("clocked out",
		slog.String("worker_id", e.WorkerID),
		slog.String("entry_id", e.ID),
		slog.Float64("hours", *e.TotalHours),
	)
	l.publish(ctx, domain.EventClockedOut, e, actor)
	return e, nil
}

// SaveDescription updates the description of a still-open entry.
func (l *Ledger) SaveDescription(ctx context.Context, actor domain.Session, entryID, description string) (domain.TimeEntry, error) {
	e, err := l.load(ctx, actor, entryID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if !e.Open() {
		return domain.TimeEntry{}, domain.ErrSessionClosed
	}
	e.Description = strings.TrimSpace(description)
	e.UpdatedAt = stamp(l.Now)
	if err := l.Entries.UpdateOpenEntry(ctx, e); err != nil {
		return domain.TimeEntry{}, fmt.Errorf("save description: %w", err)
	}
	return e, nil
}

// CurrentSession returns the worker's open entry, or nil when there is none.
func (l *Ledger) CurrentSession(ctx context.Context, workerID string) (*domain.TimeEntry, error) {
	e, err := l.Entries.FindOpenEntry(ctx, workerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open entry: %w", err)
	}
	return &e, nil
}

// EditEntry rewrites an entry on behalf of its worker or the project admin.
// Hours are recomputed from the resulting timestamps.
func (l *Ledger) EditEntry(ctx context.Context, actor domain.Session, entryID string, edit EntryEdit) (domain.TimeEntry, error) {
	if edit.Reopen && edit.ClockOut != nil {
		return domain.TimeEntry{}, fmt.Errorf("%w: reopen and clock out are exclusive", domain.ErrValidation)
	}
	e, err := l.load(ctx, actor, entryID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	wasOpen := e.Open()

	in, out := e.ClockIn, e.ClockOut
	if edit.ClockIn != nil {
		in = edit.ClockIn.UTC()
	}
	if edit.ClockOut != nil {
		o := edit.ClockOut.UTC()
		out = &o
	}
	if edit.Reopen {
		out = nil
	}
	if err := e.SetWindow(in, out); err != nil {
		return domain.TimeEntry{}, err
	}
	if edit.Description != nil {
		e.Description = strings.TrimSpace(*edit.Description)
	}
	if !wasOpen && e.Open() {
		if err := l.ensureNoOpenEntry(ctx, e.WorkerID, e.ID); err != nil {
			return domain.TimeEntry{}, err
		}
	}
	e.UpdatedAt = stamp(l.Now)
	if err := l.Entries.UpdateEntry(ctx, e); err != nil {
		return domain.TimeEntry{}, fmt.Errorf("edit entry: %w", err)
	}
	l.Log.Info("entry edited", slog.String("entry_id", e.ID), slog.String("actor", string(actor.UserType)))
	l.publish(ctx, domain.EventEdited, e, actor)
	return e, nil
}

// AddEntry inserts an entry directly, bypassing the clock in/out pair.
func (l *Ledger) AddEntry(ctx context.Context, actor domain.Session, workerID string, in NewEntry) (domain.TimeEntry, error) {
	w, err := l.Workers.GetWorker(ctx, workerID)
	if err != nil {
		return domain.TimeEntry{}, fmt.Errorf("load worker: %w", err)
	}
	if !actor.CanManage(w) {
		return domain.TimeEntry{}, domain.ErrForbidden
	}

	now := stamp(l.Now)
	clockIn := now
	if in.ClockIn != nil {
		clockIn = in.ClockIn.UTC()
	}
	var clockOut *time.Time
	if in.ClockOut != nil {
		o := in.ClockOut.UTC()
		clockOut = &o
	}
	e := domain.TimeEntry{
		ID:          newID(l.NewID),
		WorkerID:    w.ID,
		ProjectID:   w.ProjectID,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.SetWindow(clockIn, clockOut); err != nil {
		return domain.TimeEntry{}, err
	}
	if e.Open() {
		if err := l.ensureNoOpenEntry(ctx, w.ID, ""); err != nil {
			return domain.TimeEntry{}, err
		}
	}
	if err := l.Entries.CreateEntry(ctx, e); err != nil {
		return domain.TimeEntry{}, fmt.Errorf("add entry: %w", err)
	}
	l.Log.Info("entry added",
		slog.String("worker_id", w.ID),
		slog.String("entry_id", e.ID),
		slog.String("status", string(e.Status())),
	)
	l.publish(ctx, domain.EventAdded, e, actor)
	return e, nil
}

func (l *Ledger) load(ctx context.Context, actor domain.Session, entryID string) (domain.TimeEntry, error) {
	e, err := l.Entries.GetEntry(ctx, entryID)
	if err != nil {
		return domain.TimeEntry{}, fmt.Errorf("load entry: %w", err)
	}
	if !actor.CanAccess(e) {
		return domain.TimeEntry{}, domain.ErrForbidden
	}
	return e, nil
}

// ensureNoOpenEntry fails with ErrSessionOpen when the worker already has an
// open entry other than except. The store enforces the same rule on write.
func (l *Ledger) ensureNoOpenEntry(ctx context.Context, workerID, except string) error {
	open, err := l.Entries.FindOpenEntry(ctx, workerID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("find open entry: %w", err)
	case open.ID == except:
		return nil
	}
	return domain.ErrSessionOpen
}

func (l *Ledger) publish(ctx context.Context, t domain.EventType, e domain.TimeEntry, actor domain.Session) {
	if l.Events == nil {
		return
	}
	ev := domain.NewEntryEvent(t, e, actor.UserType, stamp(l.Now))
	if err := l.Events.PublishEntryEvent(ctx, ev); err != nil {
		l.Log.Warn("publish entry event failed",
			slog.String("type", string(t)),
			slog.String("entry_id", e.ID),
			slog.String("error", err.Error()),
		)
	}
}
