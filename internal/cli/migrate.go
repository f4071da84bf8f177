package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/legacy"
	"github.com/roach88/stockroom/internal/migrate"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Legacy string
}

// MigrateResult is the JSON payload of the migrate command.
type MigrateResult struct {
	Legacy   string `json:"legacy"`
	Skipped  bool   `json:"skipped"`
	Migrated int    `json:"migrated"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy products from legacy key/value storage",
		Long: `Copy the product list from legacy key/value storage into the database.

The migration runs once: after it succeeds a flag is recorded and later
runs do nothing. It also runs automatically the first time products are
loaded. Malformed legacy data leaves the flag unset.

Examples:
  stockroom migrate
  stockroom migrate --legacy ./old/legacy-storage.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Legacy, "legacy", "", "legacy storage file (overrides legacy_path)")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	mgr := a.migrator
	path := a.cfg.LegacyPath
	if opts.Legacy != "" {
		path = opts.Legacy
		file := legacy.NewFile(path, legacy.WithLogger(a.logger))
		mgr = migrate.NewManager(a.store, file, migrate.WithLogger(a.logger), migrate.WithClock(a.now))
	}
	formatter.VerboseLog("Migrating from %s", path)

	res, err := mgr.MigrateIfNeeded(ctx)
	if err != nil {
		if migrate.IsMigrationError(err) {
			return formatter.Fail(ExitFailure, ErrCodeInvalidData, "legacy data rejected", err)
		}
		return formatter.Fail(ExitFailure, ErrCodeStorage, "migration failed", err)
	}

	result := MigrateResult{Legacy: path, Skipped: res.Skipped, Migrated: res.Migrated}
	text := fmt.Sprintf("Migrated %d products from %s", res.Migrated, path)
	if res.Skipped {
		text = "Already migrated; nothing to do"
	}
	return formatter.Success(text, result)
}
