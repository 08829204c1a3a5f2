package usecase

import (
	"time"

	"github.com/google/uuid"

	"timetrack/internal/ports"
)

// Stored timestamps keep microsecond precision in every supported database.
func stamp(c ports.Clock) time.Time {
	now := time.Now
	if c != nil {
		now = c
	}
	return now().UTC().Truncate(time.Microsecond)
}

func newID(gen func() string) string {
	if gen != nil {
		return gen()
	}
	return uuid.NewString()
}
