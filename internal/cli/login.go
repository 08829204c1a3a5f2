package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"timetrack/internal/domain"
	"timetrack/internal/session"
)

func loginCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as a project admin or a worker",
	}

	var project, password, code string
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Log in with the project password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.app.Access.AdminLogin(ctx, project, password)
				if err != nil {
					return loginError(err)
				}
				return r.saveLogin(sess, "Logged in as admin of "+project)
			})
		},
	}
	worker := &cobra.Command{
		Use:   "worker",
		Short: "Log in with a worker code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.app.Access.WorkerLogin(ctx, project, code, password)
				if err != nil {
					return loginError(err)
				}
				return r.saveLogin(sess, fmt.Sprintf("Logged in as worker %s of %s", code, project))
			})
		},
	}
	for _, c := range []*cobra.Command{admin, worker} {
		c.Flags().StringVar(&project, "project", "", "Project name")
		c.Flags().StringVar(&password, "password", "", "Password")
		_ = c.MarkFlagRequired("project")
		_ = c.MarkFlagRequired("password")
	}
	worker.Flags().StringVar(&code, "code", "", "Worker code")
	_ = worker.MarkFlagRequired("code")

	cmd.AddCommand(admin, worker)
	return cmd
}

func loginError(err error) error {
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return domain.ErrInvalidCredentials
	}
	return fmt.Errorf("login failed: %w", err)
}

func (r *runner) saveLogin(sess domain.Session, msg string) error {
	if err := r.sessions.Save(sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	fmt.Fprintln(r.out, ok("%s", msg))
	return nil
}

func logoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				if err := r.sessions.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(r.out, ok("Logged out"))
				return nil
			})
		},
	}
}

func whoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.sessions.Load()
				if errors.Is(err, session.ErrNoSession) {
					fmt.Fprintln(r.out, "Not logged in")
					return nil
				}
				if err != nil {
					return err
				}
				if sess.IsAdmin() {
					p, err := r.app.Dashboard.Projects.GetProject(ctx, sess.ProjectID)
					if err != nil {
						return err
					}
					fmt.Fprintf(r.out, "Admin of %s (%s)\n", p.Name, p.ID)
					return nil
				}
				wk, err := r.app.Dashboard.Workers.GetWorker(ctx, sess.WorkerID)
				if err != nil {
					return err
				}
				fmt.Fprintf(r.out, "Worker %s - %s (project %s)\n", wk.Code, wk.Name, wk.ProjectID)
				return nil
			})
		},
	}
}
