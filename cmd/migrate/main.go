// Command migrate applies the embedded detection schema migrations.
package main

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/linkguard/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrator is the subset of *migrate.Migrate the commands drive.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

type opener func(dsn string) (Migrator, error)

func main() {
	if err := newRootCmd(open, resolveDSN).Execute(); err != nil {
		os.Exit(1)
	}
}

func open(dsn string) (Migrator, error) {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrator: %w", err)
	}
	return m, nil
}

// resolveDSN falls back to the database section of the service config,
// including its LINKGUARD_DB_* overrides.
func resolveDSN(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	db, err := config.LoadDatabase()
	if err != nil {
		return "", err
	}
	return db.MigrateURL(), nil
}

func newRootCmd(openFn opener, resolve func(string) (string, error)) *cobra.Command {
	var dsn string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply linkguard database migrations",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "postgres:// connection URL, default from config")

	run := func(fn func(m Migrator, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			url, err := resolve(dsn)
			if err != nil {
				return err
			}
			m, err := openFn(url)
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(m, cmd.OutOrStdout())
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(m Migrator, out io.Writer) error {
				if err := ignoreNoChange(m.Up()); err != nil {
					return fmt.Errorf("up: %w", err)
				}
				fmt.Fprintln(out, "migrations applied")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(m Migrator, out io.Writer) error {
				if err := ignoreNoChange(m.Down()); err != nil {
					return fmt.Errorf("down: %w", err)
				}
				fmt.Fprintln(out, "migrations reverted")
				return nil
			}),
		},
		stepsCmd(run),
		&cobra.Command{
			Use:   "version",
			Short: "Print the current migration version",
			Args:  cobra.NoArgs,
			RunE: run(func(m Migrator, out io.Writer) error {
				v, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Fprintln(out, "version: none")
					return nil
				}
				if err != nil {
					return fmt.Errorf("version: %w", err)
				}
				fmt.Fprintf(out, "version: %d, dirty: %v\n", v, dirty)
				return nil
			}),
		},
		forceCmd(run),
	)

	return root
}

type runner func(fn func(m Migrator, out io.Writer) error) func(*cobra.Command, []string) error

func stepsCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations, negative N reverts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return fmt.Errorf("steps: %q is not a non-zero integer", args[0])
			}
			return run(func(m Migrator, out io.Writer) error {
				if err := ignoreNoChange(m.Steps(n)); err != nil {
					return fmt.Errorf("steps: %w", err)
				}
				fmt.Fprintf(out, "applied %d migration steps\n", n)
				return nil
			})(cmd, args)
		},
	}
}

func forceCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the migration version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < -1 {
				return fmt.Errorf("force: %q is not a version", args[0])
			}
			return run(func(m Migrator, out io.Writer) error {
				if err := m.Force(v); err != nil {
					return fmt.Errorf("force: %w", err)
				}
				fmt.Fprintf(out, "forced to version %d\n", v)
				return nil
			})(cmd, args)
		},
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
