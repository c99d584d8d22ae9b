package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/barncase/barn/infra"
	"github.com/barncase/barn/infra/initializer"
	"github.com/barncase/barn/infra/migrations"
	"github.com/barncase/barn/pkg/app"
	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/config"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// env builds what the commands need from an env file.
type env struct {
	loadApp func(envFile string) (*app.App, error)
	openDB  func(envFile string) (*sql.DB, error)
}

func defaultEnv() env {
	return env{
		loadApp: func(envFile string) (*app.App, error) {
			cfg, err := config.Load(envFile)
			if err != nil {
				return nil, err
			}
			deps, err := initializer.InitializeDependencies(cfg)
			if err != nil {
				return nil, err
			}
			return app.New(deps, cfg), nil
		},
		openDB: func(envFile string) (*sql.DB, error) {
			cfg, err := config.Load(envFile)
			if err != nil {
				return nil, err
			}
			if cfg.DB.UsesMemory() {
				return nil, errors.New("migrate requires DATABASE_URL")
			}
			db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
			if err != nil {
				return nil, err
			}
			return db.DB()
		},
	}
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
)

func newRootCmd(e env) *cobra.Command {
	var envFile string
	var jsonOutput bool

	root := &cobra.Command{
		Use:           "barnctl",
		Short:         "Maintenance commands for the barn farm simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file to load")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	withApp := func(run func(cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			a, err := e.loadApp(envFile)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			defer a.Shutdown() //nolint:errcheck
			return run(cmd, a)
		}
	}
	printJSON := func(w io.Writer, v any) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tick := &cobra.Command{
		Use:   "tick",
		Short: "Run one production cycle over every farm",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			res, err := a.Scheduler.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, res)
			}
			c := okColor
			if res.Failed > 0 {
				c = warnColor
			}
			_, err = c.Fprintf(out, "cycle done: farms=%d created=%d failed=%d in %s\n",
				res.Farms, res.Created, res.Failed, res.Duration)
			return err
		}),
	}

	var repair bool
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare stored balances with ledger sums",
		Long: `Compare every user's stored balance with the sum of their ledger entries.

Examples:
  barnctl reconcile            # report drift only
  barnctl reconcile --repair   # reset drifted balances to the ledger sum`,
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			report, err := a.LedgerService.ReconcileAll(cmd.Context(), repair)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, report)
			}
			if len(report.Drifts) == 0 {
				_, err := okColor.Fprintf(out, "checked %d users, no drift\n", report.Checked)
				return err
			}
			warnColor.Fprintf(out, "checked %d users, %d drifted\n", report.Checked, len(report.Drifts)) //nolint:errcheck
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER\tNAME\tSTORED\tLEDGER\tREPAIRED") //nolint:errcheck
			for _, d := range report.Drifts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", d.UserID, d.Name, d.Stored, d.Ledger, d.Repaired) //nolint:errcheck
			}
			return tw.Flush()
		}),
	}
	reconcile.Flags().BoolVar(&repair, "repair", false, "Reset drifted balances to the ledger sum")

	var name, password string
	admin := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin user",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			system := authz.Caller{Role: user.RoleAdmin}
			u, err := a.AuthService.Register(cmd.Context(), &system, name, password, user.RoleAdmin)
			if err != nil {
				return err
			}
			_, err = okColor.Fprintf(cmd.OutOrStdout(), "admin %s created: %s\n", u.Name, u.ID)
			return err
		}),
	}
	admin.Flags().StringVar(&name, "name", "", "Admin user name")
	admin.Flags().StringVar(&password, "password", "", "Admin password")
	_ = admin.MarkFlagRequired("name")
	_ = admin.MarkFlagRequired("password")

	root.AddCommand(tick, reconcile, admin, newMigrateCmd(e, &envFile))
	return root
}

func newMigrateCmd(e env, envFile *string) *cobra.Command {
	withDB := func(run func(cmd *cobra.Command, db *sql.DB) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			db, err := e.openDB(*envFile)
			if err != nil {
				errColor.Fprintln(cmd.ErrOrStderr(), "cannot open database") //nolint:errcheck
				return err
			}
			defer db.Close() //nolint:errcheck
			return run(cmd, db)
		}
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Run database migrations.

Subcommands:
  up       - Apply pending migrations
  down     - Roll back every migration
  version  - Show the applied version`,
	}
	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: withDB(func(cmd *cobra.Command, db *sql.DB) error {
				if err := migrations.Up(db); err != nil {
					return err
				}
				_, err := okColor.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return err
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: withDB(func(cmd *cobra.Command, db *sql.DB) error {
				if err := migrations.Down(db); err != nil {
					return err
				}
				_, err := warnColor.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return err
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied schema version",
			RunE: withDB(func(cmd *cobra.Command, db *sql.DB) error {
				v, dirty, err := migrations.Version(db)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return err
			}),
		},
	)
	return migrate
}
