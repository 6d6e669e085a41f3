// Package migrate implements the migrate command.
package migrate

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// source
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/article-ingestor/cmd/common"
)

// DefaultSource is the migrations directory relative to the working directory.
const DefaultSource = "file://migrations"

// Migrator is the subset of *migrate.Migrate the command drives.
type Migrator interface {
	Up() error
	Down() error
}

// Command returns the migrate command.
func Command(options common.OptionsFunc) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:       "migrate <up|down>",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfig(options())
			if err != nil {
				return err
			}

			m, err := migrate.New(source, cfg.Database.MigrateURL())
			if err != nil {
				return fmt.Errorf("create migrate instance: %w", err)
			}
			defer func() { _, _ = m.Close() }()

			applied, err := Run(m, args[0])
			if err != nil {
				return fmt.Errorf("migration %s failed: %w", args[0], err)
			}

			if !applied {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations to apply")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", DefaultSource, "migrations source URL")
	return cmd
}

// Run migrates in direction. applied is false when there was nothing to do.
func Run(m Migrator, direction string) (applied bool, err error) {
	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return false, fmt.Errorf("invalid direction %q", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
