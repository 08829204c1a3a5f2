package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"timetrack/internal/usecase"
)

func projectCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	var in usecase.ProjectInput
	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a project protected by an admin password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				p, err := r.app.Access.CreateProject(ctx, in)
				if err != nil {
					return fmt.Errorf("failed to create project: %w", err)
				}
				fmt.Fprintln(r.out, ok("Created project %s: %s", p.ID, p.Name))
				return nil
			})
		},
	}
	create.Flags().StringVar(&in.Password, "password", "", "Admin password")
	create.Flags().StringVar(&in.Description, "description", "", "Project description")
	_ = create.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				ps, err := r.app.Access.ListProjects(ctx)
				if err != nil {
					return fmt.Errorf("failed to list projects: %w", err)
				}
				if len(ps) == 0 {
					fmt.Fprintln(r.out, "No projects found")
					return nil
				}
				w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCREATED")
				fmt.Fprintln(w, "--\t----\t-------")
				for _, p := range ps {
					fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.CreatedAt.In(r.cfg.Location).Format("2006-01-02"))
				}
				return w.Flush()
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func workerCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage the workers of the logged in admin's project",
	}

	var in usecase.WorkerInput
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.admin()
				if err != nil {
					return err
				}
				wk, err := r.app.Access.AddWorker(ctx, sess, in)
				if err != nil {
					return fmt.Errorf("failed to add worker: %w", err)
				}
				fmt.Fprintln(r.out, ok("Added worker %s: %s (%s)", wk.ID, wk.Name, wk.Code))
				return nil
			})
		},
	}
	add.Flags().StringVar(&in.Code, "code", "", "Worker code used to log in")
	add.Flags().StringVar(&in.Password, "password", "", "Worker password")
	add.Flags().StringVar(&in.Email, "email", "", "Worker email")
	_ = add.MarkFlagRequired("code")
	_ = add.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, r *runner) error {
				sess, err := r.admin()
				if err != nil {
					return err
				}
				ws, err := r.app.Access.ListWorkers(ctx, sess)
				if err != nil {
					return fmt.Errorf("failed to list workers: %w", err)
				}
				if len(ws) == 0 {
					fmt.Fprintln(r.out, "No workers found")
					return nil
				}
				w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCODE\tNAME\tEMAIL")
				fmt.Fprintln(w, "--\t----\t----\t-----")
				for _, wk := range ws {
					email := wk.Email
					if email == "" {
						email = "-"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", wk.ID, wk.Code, wk.Name, email)
				}
				return w.Flush()
			})
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
