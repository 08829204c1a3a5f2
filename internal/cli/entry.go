package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"timetrack/internal/aggregate"
	"timetrack/internal/domain"
	"timetrack/internal/export"
	"timetrack/internal/usecase"
)

const timeLayout = "2006-01-02 15:04"

func entryCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Add, edit and list time entries",
	}

	var workerID, in, out, note string
	add := &cobra.Command{
		Use:   "add",
		Short: "Insert an entry without clocking in",
		Long: `Insert an entry directly. Admins pass --worker; workers add to their own
entries. Omitting --out leaves the entry open.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.session()
				if err != nil {
					return err
				}
				target := workerID
				if target == "" {
					target = sess.WorkerID
				}
				if target == "" {
					return fmt.Errorf("%w: --worker is required for admins", domain.ErrValidation)
				}
				clockIn, err := parseTime(in, r.cfg.Location)
				if err != nil {
					return err
				}
				clockOut, err := parseTime(out, r.cfg.Location)
				if err != nil {
					return err
				}
				entry, err := r.app.Ledger.AddEntry(ctx, sess, target, usecase.NewEntry{
					ClockIn: clockIn, ClockOut: clockOut, Description: note,
				})
				if err != nil {
					return fmt.Errorf("failed to add entry: %w", err)
				}
				fmt.Fprintln(r.out, ok("Added entry %s (%s, %sh)", entry.ID, entry.Status(), aggregate.FormatHours(entry.TotalHours)))
				return nil
			})
		},
	}
	add.Flags().StringVar(&workerID, "worker", "", "Worker ID (admins only)")
	add.Flags().StringVar(&in, "in", "", "Clock in time (default: now)")
	add.Flags().StringVar(&out, "out", "", "Clock out time")
	add.Flags().StringVar(&note, "note", "", "Work description")

	var reopen bool
	edit := &cobra.Command{
		Use:   "edit [entry-id]",
		Short: "Change the times or description of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.session()
				if err != nil {
					return err
				}
				var change usecase.EntryEdit
				if change.ClockIn, err = parseTime(in, r.cfg.Location); err != nil {
					return err
				}
				if change.ClockOut, err = parseTime(out, r.cfg.Location); err != nil {
					return err
				}
				change.Reopen = reopen
				if cmd.Flags().Changed("note") {
					change.Description = &note
				}
				entry, err := r.app.Ledger.EditEntry(ctx, sess, args[0], change)
				if err != nil {
					return fmt.Errorf("failed to edit entry: %w", err)
				}
				fmt.Fprintln(r.out, ok("Updated entry %s (%s, %sh)", entry.ID, entry.Status(), aggregate.FormatHours(entry.TotalHours)))
				return nil
			})
		},
	}
	edit.Flags().StringVar(&in, "in", "", "New clock in time")
	edit.Flags().StringVar(&out, "out", "", "New clock out time")
	edit.Flags().StringVar(&note, "note", "", "New work description")
	edit.Flags().BoolVar(&reopen, "reopen", false, "Clear the clock out")

	list := &cobra.Command{
		Use:   "list",
		Short: "List entries for the logged in worker, or the whole project for admins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.session()
				if err != nil {
					return err
				}
				var entries []domain.TimeEntry
				if sess.IsAdmin() {
					month, year := period(cmd, r.cfg.Location)
					view, err := r.app.Dashboard.Admin(ctx, sess, month, year)
					if err != nil {
						return err
					}
					entries = view.Entries
					if workerID != "" {
						if entries, err = aggregate.FilterPeriod(view.Entries, workerID, month, year, r.cfg.Location); err != nil {
							return err
						}
					}
				} else {
					view, err := r.app.Dashboard.Worker(ctx, sess)
					if err != nil {
						return err
					}
					entries = view.Entries
				}
				return printEntries(r, entries)
			})
		},
	}
	list.Flags().StringVar(&workerID, "worker", "", "Only this worker's entries in the selected month (admins)")
	addPeriodFlags(list)

	cmd.AddCommand(add, edit, list)
	return cmd
}

func printEntries(r *runner, entries []domain.TimeEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No entries found")
		return nil
	}
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWORKER\tCLOCK IN\tCLOCK OUT\tHOURS\tDESCRIPTION")
	fmt.Fprintln(w, "--\t------\t--------\t---------\t-----\t-----------")
	for _, e := range entries {
		who := e.WorkerCode
		if who == "" {
			who = e.WorkerID
		}
		out := color.New(color.FgGreen).Sprint("active")
		if e.ClockOut != nil {
			out = e.ClockOut.In(r.cfg.Location).Format(timeLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, who, e.ClockIn.In(r.cfg.Location).Format(timeLayout), out,
			aggregate.FormatHours(e.TotalHours), e.Description)
	}
	return w.Flush()
}

func reportCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show hours per worker for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.admin()
				if err != nil {
					return err
				}
				month, year := period(cmd, r.cfg.Location)
				view, err := r.app.Dashboard.Admin(ctx, sess, month, year)
				if err != nil {
					return err
				}
				fmt.Fprintf(r.out, "%s - %02d/%d\n", view.Project.Name, month, year)
				fmt.Fprintf(r.out, "Workers: %d  Entries: %d  Active sessions: %d\n\n",
					len(view.Workers), len(view.Entries), view.ActiveSessions)

				w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CODE\tNAME\tENTRIES\tMONTH HOURS\tTOTAL HOURS")
				fmt.Fprintln(w, "----\t----\t-------\t-----------\t-----------")
				for _, s := range view.Summaries {
					fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\n",
						s.Worker.Code, s.Worker.Name, len(s.Period), s.PeriodHours, s.TotalHours)
				}
				return w.Flush()
			})
		},
	}
	addPeriodFlags(cmd)
	return cmd
}

func exportCmd(e *env) *cobra.Command {
	var workerID, format, dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a worker's monthly entries as XLSX or PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.session()
				if err != nil {
					return err
				}
				target := workerID
				if target == "" {
					target = sess.WorkerID
				}
				if target == "" {
					return fmt.Errorf("%w: --worker is required for admins", domain.ErrValidation)
				}
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				month, year := period(cmd, r.cfg.Location)
				file, err := r.app.Exporter.WorkerMonth(ctx, sess, target, month, year, f)
				if err != nil {
					return fmt.Errorf("failed to export: %w", err)
				}
				path := filepath.Join(dir, file.Name)
				if err := os.WriteFile(path, file.Data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				fmt.Fprintln(r.out, ok("Wrote %s", path))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "Worker ID (admins only)")
	cmd.Flags().StringVar(&format, "format", "xlsx", "xlsx or pdf")
	cmd.Flags().StringVar(&dir, "dir", ".", "Output directory")
	addPeriodFlags(cmd)
	return cmd
}
