package domain

import "time"

type EventType string

const (
	EventClockedIn  EventType = "entry.clocked_in"
	EventClockedOut EventType = "entry.clocked_out"
	EventEdited     EventType = "entry.edited"
	EventAdded      EventType = "entry.added"
)

// EntryEvent describes a completed change to a time entry.
type EntryEvent struct {
	Type       EventType  `json:"type"`
	EntryID    string     `json:"entry_id"`
	WorkerID   string     `json:"worker_id"`
	ProjectID  string     `json:"project_id"`
	ClockIn    time.Time  `json:"clock_in"`
	ClockOut   *time.Time `json:"clock_out,omitempty"`
	TotalHours *float64   `json:"total_hours,omitempty"`
	Status     Status     `json:"status"`
	Actor      UserType   `json:"actor"`
	At         time.Time  `json:"at"`
}

// NewEntryEvent snapshots e for publishing.
func NewEntryEvent(t EventType, e TimeEntry, actor UserType, at time.Time) EntryEvent {
	return EntryEvent{
		Type:       t,
		EntryID:    e.ID,
		WorkerID:   e.WorkerID,
		ProjectID:  e.ProjectID,
		ClockIn:    e.ClockIn,
		ClockOut:   e.ClockOut,
		TotalHours: e.TotalHours,
		Status:     e.Status(),
		Actor:      actor,
		At:         at,
	}
}
