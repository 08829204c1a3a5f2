// Package tui renders the live clock a worker sees while a session is open.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"timetrack/internal/aggregate"
	"timetrack/internal/domain"
)

const tickInterval = time.Second

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ade80"))
	elapsedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f5f5f5")).Padding(0, 1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
)

// ClockOutFunc closes the session shown by the clock.
type ClockOutFunc func() (domain.TimeEntry, error)

type tickMsg time.Time

type clockedOutMsg struct {
	entry domain.TimeEntry
	err   error
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Clock shows the elapsed time of an open entry. Pressing o clocks out and
// q leaves the view with the session still running.
type Clock struct {
	entry    domain.TimeEntry
	clockOut ClockOutFunc
	now      func() time.Time

	elapsed string
	closed  *domain.TimeEntry
	err     error
}

func NewClock(entry domain.TimeEntry, clockOut ClockOutFunc, now func() time.Time) Clock {
	if now == nil {
		now = time.Now
	}
	c := Clock{entry: entry, clockOut: clockOut, now: now}
	c.elapsed = aggregate.FormatElapsed(now().Sub(entry.ClockIn))
	return c
}

// Closed returns the clocked out entry, or nil while the session is open.
func (c Clock) Closed() *domain.TimeEntry { return c.closed }

func (c Clock) Init() tea.Cmd { return tickCmd() }

func (c Clock) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return c, tea.Quit
		case "o":
			if c.closed != nil || c.clockOut == nil {
				return c, nil
			}
			fn := c.clockOut
			return c, func() tea.Msg {
				e, err := fn()
				return clockedOutMsg{entry: e, err: err}
			}
		}
	case tickMsg:
		if c.closed != nil {
			return c, nil
		}
		c.elapsed = aggregate.FormatElapsed(time.Time(msg).Sub(c.entry.ClockIn))
		return c, tickCmd()
	case clockedOutMsg:
		if msg.err != nil {
			c.err = msg.err
			return c, nil
		}
		c.err = nil
		c.closed = &msg.entry
		return c, tea.Quit
	}
	return c, nil
}

func (c Clock) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("On the clock"))
	b.WriteString("\n\n")
	b.WriteString(elapsedStyle.Render(c.elapsed))
	b.WriteString("\n")
	if c.entry.Description != "" {
		b.WriteString(dimStyle.Render(c.entry.Description))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("since " + c.entry.ClockIn.In(time.Local).Format("15:04:05")))
	b.WriteString("\n\n")
	if c.err != nil {
		b.WriteString(errStyle.Render("clock out failed: " + c.err.Error()))
		b.WriteString("\n")
	}
	if c.closed != nil {
		b.WriteString(fmt.Sprintf("Clocked out after %sh\n", aggregate.FormatHours(c.closed.TotalHours)))
		return b.String()
	}
	b.WriteString(dimStyle.Render("o clock out • q quit"))
	b.WriteString("\n")
	return b.String()
}
