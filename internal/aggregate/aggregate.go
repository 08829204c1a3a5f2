// Package aggregate computes read-side summaries over time entries without
// touching storage.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"timetrack/internal/domain"
)

// FilterPeriod returns the worker's entries whose clock-in falls in the given
// calendar month and year, evaluated in loc. Input order is preserved.
func FilterPeriod(entries []domain.TimeEntry, workerID string, month, year int, loc *time.Location) ([]domain.TimeEntry, error) {
	if month < 1 || month > 12 {
		return nil, domain.ErrInvalidPeriod
	}
	if loc == nil {
		loc = time.Local
	}
	out := make([]domain.TimeEntry, 0)
	for _, e := range entries {
		if e.WorkerID != workerID {
			continue
		}
		in := e.ClockIn.In(loc)
		if int(in.Month()) == month && in.Year() == year {
			out = append(out, e)
		}
	}
	return out, nil
}

// SumHours adds up TotalHours; entries without hours contribute nothing.
func SumHours(entries []domain.TimeEntry) float64 {
	var sum float64
	for _, e := range entries {
		if e.TotalHours != nil {
			sum += *e.TotalHours
		}
	}
	return sum
}

// TotalHoursByWorker sums hours per worker ID.
func TotalHoursByWorker(entries []domain.TimeEntry) map[string]float64 {
	totals := make(map[string]float64)
	for _, e := range entries {
		if e.TotalHours == nil {
			continue
		}
		totals[e.WorkerID] += *e.TotalHours
	}
	return totals
}

// CountActive counts open sessions.
func CountActive(entries []domain.TimeEntry) int {
	n := 0
	for _, e := range entries {
		if e.Open() {
			n++
		}
	}
	return n
}

// Years lists the distinct clock-in years in loc, newest first.
func Years(entries []domain.TimeEntry, loc *time.Location) []int {
	if loc == nil {
		loc = time.Local
	}
	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, e := range entries {
		y := e.ClockIn.In(loc).Year()
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// FormatElapsed renders d as HH:MM:SS. Hours are not wrapped at 24.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// FormatHours renders hours with two decimals, or "N/A" when absent or zero.
func FormatHours(h *float64) string {
	if h == nil || *h == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *h)
}
