package domain

import "time"

// Worker is a person tracked under exactly one project.
type Worker struct {
	ID           string
	ProjectID    string
	Name         string
	Email        string
	Code         string // unique within the project, used as the login handle
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
