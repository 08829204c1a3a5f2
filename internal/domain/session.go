package domain

// UserType identifies who is acting in a session.
type UserType string

const (
	UserAdmin  UserType = "admin"
	UserWorker UserType = "worker"
)

// Session is the authenticated identity carried between requests.
// The zero value is an anonymous session.
type Session struct {
	UserType  UserType `json:"userType,omitempty"`
	ProjectID string   `json:"projectId,omitempty"`
	WorkerID  string   `json:"workerId,omitempty"`
}

func (s Session) IsAdmin() bool  { return s.UserType == UserAdmin && s.ProjectID != "" }
func (s Session) IsWorker() bool { return s.UserType == UserWorker && s.WorkerID != "" }

// Authenticated reports whether s identifies an admin or a worker.
func (s Session) Authenticated() bool { return s.IsAdmin() || s.IsWorker() }

// CanAccess reports whether s may read or modify the entry: the owning
// worker, or an admin of the entry's project.
func (s Session) CanAccess(e TimeEntry) bool {
	switch {
	case s.IsAdmin():
		return e.ProjectID == s.ProjectID
	case s.IsWorker():
		return e.WorkerID == s.WorkerID
	}
	return false
}

// CanManage reports whether s may act on behalf of worker w.
func (s Session) CanManage(w Worker) bool {
	switch {
	case s.IsAdmin():
		return w.ProjectID == s.ProjectID
	case s.IsWorker():
		return w.ID == s.WorkerID
	}
	return false
}
