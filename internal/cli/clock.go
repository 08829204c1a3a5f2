package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"timetrack/internal/aggregate"
	"timetrack/internal/domain"
	"timetrack/internal/tui"
)

func clockCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Clock in and out as the logged in worker",
	}

	in := &cobra.Command{
		Use:   "in [description]",
		Short: "Start a work session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.worker()
				if err != nil {
					return err
				}
				entry, err := r.app.Ledger.ClockIn(ctx, sess, strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("failed to clock in: %w", err)
				}
				fmt.Fprintln(r.out, ok("Clocked in at %s", entry.ClockIn.In(r.cfg.Location).Format("15:04:05")))
				return nil
			})
		},
	}

	var note string
	out := &cobra.Command{
		Use:   "out",
		Short: "End the current work session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, cur, err := r.current(ctx)
				if err != nil {
					return err
				}
				var desc *string
				if cmd.Flags().Changed("note") {
					desc = &note
				}
				entry, err := r.app.Ledger.ClockOut(ctx, sess, cur.ID, desc)
				if err != nil {
					return fmt.Errorf("failed to clock out: %w", err)
				}
				fmt.Fprintln(r.out, ok("Clocked out after %sh", aggregate.FormatHours(entry.TotalHours)))
				return nil
			})
		},
	}
	out.Flags().StringVar(&note, "note", "", "Replace the work description")

	noteCmd := &cobra.Command{
		Use:   "note [description]",
		Short: "Update the description of the current session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, cur, err := r.current(ctx)
				if err != nil {
					return err
				}
				if _, err := r.app.Ledger.SaveDescription(ctx, sess, cur.ID, strings.Join(args, " ")); err != nil {
					return fmt.Errorf("failed to save description: %w", err)
				}
				fmt.Fprintln(r.out, ok("Description saved"))
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.worker()
				if err != nil {
					return err
				}
				cur, err := r.app.Ledger.CurrentSession(ctx, sess.WorkerID)
				if err != nil {
					return err
				}
				if cur == nil {
					fmt.Fprintln(r.out, "Not clocked in")
					return nil
				}
				fmt.Fprintf(r.out, "Clocked in since %s (%s)\n",
					cur.ClockIn.In(r.cfg.Location).Format("2006-01-02 15:04:05"),
					aggregate.FormatElapsed(time.Since(cur.ClockIn)))
				if cur.Description != "" {
					fmt.Fprintf(r.out, "  %s\n", cur.Description)
				}
				return nil
			})
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Show a live clock for the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, cur, err := r.current(ctx)
				if err != nil {
					return err
				}
				clockOut := func() (domain.TimeEntry, error) {
					return r.app.Ledger.ClockOut(ctx, sess, cur.ID, nil)
				}
				p := tea.NewProgram(tui.NewClock(cur, clockOut, nil), tea.WithContext(ctx))
				if _, err := p.Run(); err != nil {
					return fmt.Errorf("tui error: %w", err)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(in, out, noteCmd, status, watch)
	return cmd
}

// current returns the worker session and its open entry.
func (r *runner) current(ctx context.Context) (domain.Session, domain.TimeEntry, error) {
	sess, err := r.worker()
	if err != nil {
		return sess, domain.TimeEntry{}, err
	}
	cur, err := r.app.Ledger.CurrentSession(ctx, sess.WorkerID)
	if err != nil {
		return sess, domain.TimeEntry{}, err
	}
	if cur == nil {
		return sess, domain.TimeEntry{}, fmt.Errorf("not clocked in: %w", domain.ErrSessionClosed)
	}
	return sess, *cur, nil
}
