package domain

import "time"

// Status is derived from ClockOut; it is never stored.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// TimeEntry is one clock-in/clock-out session of a worker.
type TimeEntry struct {
	ID          string
	WorkerID    string
	ProjectID   string // denormalized from the worker for project-wide queries
	ClockIn     time.Time
	ClockOut    *time.Time // nil while the session is open
	Description string
	TotalHours  *float64 // nil until both timestamps are known
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Filled by project-wide listings only.
	WorkerName string
	WorkerCode string
}

// Open reports whether the session has not been clocked out yet.
func (e TimeEntry) Open() bool { return e.ClockOut == nil }

func (e TimeEntry) Status() Status {
	if e.Open() {
		return StatusActive
	}
	return StatusCompleted
}

// Close clocks the entry out at t and recomputes its hours.
func (e *TimeEntry) Close(t time.Time) error {
	if !e.Open() {
		return ErrSessionClosed
	}
	return e.SetWindow(e.ClockIn, &t)
}

// SetWindow replaces both timestamps. A nil out reopens the entry.
func (e *TimeEntry) SetWindow(in time.Time, out *time.Time) error {
	if out != nil && out.Before(in) {
		return ErrInvalidWindow
	}
	e.ClockIn = in
	if out != nil {
		o := *out
		e.ClockOut = &o
	} else {
		e.ClockOut = nil
	}
	e.RecomputeHours()
	return nil
}

// RecomputeHours derives TotalHours from the stored timestamps.
func (e *TimeEntry) RecomputeHours() {
	if e.ClockOut == nil {
		e.TotalHours = nil
		return
	}
	h := HoursBetween(e.ClockIn, *e.ClockOut)
	e.TotalHours = &h
}

// HoursBetween returns the elapsed hours from in to out, never negative.
func HoursBetween(in, out time.Time) float64 {
	d := out.Sub(in)
	if d < 0 {
		return 0
	}
	return d.Seconds() / 3600
}
