package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDuplicate           = errors.New("already exists")
	ErrValidation          = errors.New("validation failed")
	ErrForbidden           = errors.New("forbidden")
	ErrSessionOpen         = errors.New("worker already has an open session")
	ErrSessionClosed       = errors.New("session is not open")
	ErrInvalidWindow       = errors.New("clock out must not be before clock in")
	ErrDescriptionRequired = errors.New("work description is required")
	ErrInvalidPeriod       = errors.New("month must be between 1 and 12")
)
