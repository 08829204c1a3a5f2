package app

import (
	"time"

	"timetrack/internal/aggregate"
	"timetrack/internal/domain"
	"timetrack/internal/usecase"
)

type projectJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProject(p domain.Project) projectJSON {
	return projectJSON{ID: p.ID, Name: p.Name, Description: p.Description, CreatedAt: p.CreatedAt}
}

type workerJSON struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	WorkerCode string    `json:"workerCode"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toWorker(w domain.Worker) workerJSON {
	return workerJSON{ID: w.ID, ProjectID: w.ProjectID, Name: w.Name, Email: w.Email, WorkerCode: w.Code, CreatedAt: w.CreatedAt}
}

func toWorkers(ws []domain.Worker) []workerJSON {
	out := make([]workerJSON, 0, len(ws))
	for _, w := range ws {
		out = append(out, toWorker(w))
	}
	return out
}

type entryJSON struct {
	ID              string        `json:"id"`
	WorkerID        string        `json:"workerId"`
	ProjectID       string        `json:"projectId"`
	ClockIn         time.Time     `json:"clockIn"`
	ClockOut        *time.Time    `json:"clockOut"`
	WorkDescription string        `json:"workDescription"`
	TotalHours      *float64      `json:"totalHours"`
	Hours           string        `json:"hours"`
	Status          domain.Status `json:"status"`
	WorkerName      string        `json:"workerName,omitempty"`
	WorkerCode      string        `json:"workerCode,omitempty"`
}

func toEntry(e domain.TimeEntry) entryJSON {
	return entryJSON{
		ID:              e.ID,
		WorkerID:        e.WorkerID,
		ProjectID:       e.ProjectID,
		ClockIn:         e.ClockIn,
		ClockOut:        e.ClockOut,
		WorkDescription: e.Description,
		TotalHours:      e.TotalHours,
		Hours:           aggregate.FormatHours(e.TotalHours),
		Status:          e.Status(),
		WorkerName:      e.WorkerName,
		WorkerCode:      e.WorkerCode,
	}
}

func toEntries(es []domain.TimeEntry) []entryJSON {
	out := make([]entryJSON, 0, len(es))
	for _, e := range es {
		out = append(out, toEntry(e))
	}
	return out
}

type summaryJSON struct {
	Worker      workerJSON  `json:"worker"`
	TotalHours  float64     `json:"totalHours"`
	PeriodHours float64     `json:"periodHours"`
	Entries     []entryJSON `json:"entries"`
}

type adminDashboardJSON struct {
	Project        projectJSON   `json:"project"`
	Workers        []workerJSON  `json:"workers"`
	Entries        []entryJSON   `json:"entries"`
	TotalWorkers   int           `json:"totalWorkers"`
	TotalEntries   int           `json:"totalEntries"`
	ActiveSessions int           `json:"activeSessions"`
	Month          int           `json:"month"`
	Year           int           `json:"year"`
	Years          []int         `json:"years"`
	Summaries      []summaryJSON `json:"summaries"`
}

func toAdminDashboard(v usecase.AdminView) adminDashboardJSON {
	out := adminDashboardJSON{
		Project:        toProject(v.Project),
		Workers:        toWorkers(v.Workers),
		Entries:        toEntries(v.Entries),
		TotalWorkers:   len(v.Workers),
		TotalEntries:   len(v.Entries),
		ActiveSessions: v.ActiveSessions,
		Month:          v.Month,
		Year:           v.Year,
		Years:          v.Years,
		Summaries:      make([]summaryJSON, 0, len(v.Summaries)),
	}
	if out.Years == nil {
		out.Years = []int{}
	}
	for _, s := range v.Summaries {
		out.Summaries = append(out.Summaries, summaryJSON{
			Worker:      toWorker(s.Worker),
			TotalHours:  s.TotalHours,
			PeriodHours: s.PeriodHours,
			Entries:     toEntries(s.Period),
		})
	}
	return out
}

type workerDashboardJSON struct {
	Worker     workerJSON  `json:"worker"`
	Entries    []entryJSON `json:"entries"`
	Current    *entryJSON  `json:"current"`
	TotalHours float64     `json:"totalHours"`
}

func toWorkerDashboard(v usecase.WorkerView) workerDashboardJSON {
	out := workerDashboardJSON{
		Worker:     toWorker(v.Worker),
		Entries:    toEntries(v.Entries),
		TotalHours: v.TotalHours,
	}
	if v.Current != nil {
		cur := toEntry(*v.Current)
		out.Current = &cur
	}
	return out
}

type loginJSON struct {
	Token   string         `json:"token"`
	Session domain.Session `json:"session"`
}

// elapsedJSON is one message of the websocket elapsed stream.
type elapsedJSON struct {
	Status  string `json:"status"` // active, closed or idle
	EntryID string `json:"entryId,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`
}
