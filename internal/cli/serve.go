package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			e.logLevel = slog.LevelInfo
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				srv := r.app.HTTPServer(r.cfg.HTTP.Addr)
				errCh := make(chan error, 1)
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
					close(errCh)
				}()

				select {
				case err := <-errCh:
					if err != nil {
						return fmt.Errorf("http server: %w", err)
					}
					return nil
				case <-ctx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			})
		},
	}
}

func migrateCmd(e *env) *cobra.Command {
	var importLegacy bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply pending database migrations.

With --import-legacy, projects found in the legacy_projects table are copied
into projects with their passwords hashed. Projects whose name already exists
are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the app applies migrations.
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				fmt.Fprintln(r.out, ok("Database is up to date (%s)", r.cfg.DB.Driver))
				if !importLegacy {
					return nil
				}
				n, err := r.app.ImportLegacy(ctx)
				if err != nil {
					return fmt.Errorf("failed to import legacy projects: %w", err)
				}
				fmt.Fprintln(r.out, ok("Imported %d legacy project(s)", n))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&importLegacy, "import-legacy", false, "Import projects from the legacy_projects table")
	return cmd
}
