// Package cli implements the timetrack command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"timetrack/internal/app"
	"timetrack/internal/config"
	"timetrack/internal/domain"
	"timetrack/internal/session"
)

// env carries the persistent flags shared by every command.
type env struct {
	configPath string
	verbose    bool
	logLevel   slog.Level
}

// RootCmd builds the timetrack command tree.
func RootCmd(version string) *cobra.Command {
	e := &env{logLevel: slog.LevelWarn}

	root := &cobra.Command{
		Use:     "timetrack",
		Short:   "Track worker hours per project",
		Version: version,
		Long: `timetrack records clock in/clock out sessions for the workers of a project
and aggregates their hours per month.

Admins log in with the project password, workers with their worker code.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "YAML config file (default: $TIMETRACK_CONFIG)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(serveCmd(e))
	root.AddCommand(migrateCmd(e))
	root.AddCommand(projectCmd(e))
	root.AddCommand(workerCmd(e))
	root.AddCommand(loginCmd(e))
	root.AddCommand(logoutCmd(e))
	root.AddCommand(whoamiCmd(e))
	root.AddCommand(clockCmd(e))
	root.AddCommand(entryCmd(e))
	root.AddCommand(reportCmd(e))
	root.AddCommand(exportCmd(e))
	return root
}

// PrintError writes err to w the way every command reports failures.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
}

// runner is handed to commands that need the application.
type runner struct {
	app      *app.App
	cfg      config.Config
	sessions *session.FileStore
	out      io.Writer
}

// run loads configuration, opens the application for the duration of fn and
// closes it afterwards.
func (e *env) run(cmd *cobra.Command, fn func(ctx context.Context, r *runner) error) error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level := e.logLevel
	if e.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx := cmd.Context()
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close failed", slog.String("error", err.Error()))
		}
	}()
	return fn(ctx, &runner{
		app:      a,
		cfg:      cfg,
		sessions: session.NewFileStore(cfg.Session.File, a.Tokens()),
		out:      cmd.OutOrStdout(),
	})
}

// session returns the logged in session or a hint on how to log in.
func (r *runner) session() (domain.Session, error) {
	sess, err := r.sessions.Load()
	if errors.Is(err, session.ErrNoSession) {
		return sess, fmt.Errorf("not logged in\nHint: run `timetrack login admin` or `timetrack login worker`")
	}
	return sess, err
}

// worker returns the logged in worker session.
func (r *runner) worker() (domain.Session, error) {
	sess, err := r.session()
	if err != nil {
		return sess, err
	}
	if !sess.IsWorker() {
		return sess, fmt.Errorf("this command needs a worker login: %w", domain.ErrForbidden)
	}
	return sess, nil
}

// admin returns the logged in admin session.
func (r *runner) admin() (domain.Session, error) {
	sess, err := r.session()
	if err != nil {
		return sess, err
	}
	if !sess.IsAdmin() {
		return sess, fmt.Errorf("this command needs an admin login: %w", domain.ErrForbidden)
	}
	return sess, nil
}

func ok(format string, a ...any) string {
	return color.New(color.FgGreen).Sprint("✓") + " " + fmt.Sprintf(format, a...)
}

// parseTime accepts RFC3339 or "YYYY-MM-DD HH:MM" in loc.
func parseTime(val string, loc *time.Location) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, val, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid time %q, expected RFC3339 or YYYY-MM-DD HH:MM", domain.ErrValidation, val)
}

// period resolves --month and --year, defaulting to the current month.
func period(cmd *cobra.Command, loc *time.Location) (int, int) {
	now := time.Now().In(loc)
	month, _ := cmd.Flags().GetInt("month")
	year, _ := cmd.Flags().GetInt("year")
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	return month, year
}

func addPeriodFlags(cmd *cobra.Command) {
	cmd.Flags().Int("month", 0, "Month 1-12 (default: current)")
	cmd.Flags().Int("year", 0, "Year (default: current)")
}
