package domain

import "time"

// Project is a workspace that owns workers and their time entries.
type Project struct {
	ID           string
	Name         string // unique per deployment, used as the login handle
	Description  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
