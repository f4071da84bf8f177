package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/config"
	"github.com/roach88/stockroom/internal/datasync"
	"github.com/roach88/stockroom/internal/imagecodec"
	"github.com/roach88/stockroom/internal/inventory"
	"github.com/roach88/stockroom/internal/legacy"
	"github.com/roach88/stockroom/internal/migrate"
	"github.com/roach88/stockroom/internal/store"
)

// app is the wired set of components a command works with.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	now    func() time.Time

	store    *store.Store
	legacy   *legacy.File
	migrator *migrate.Manager
	facade   *datasync.Facade
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	return cfg, nil
}

// openApp wires the store, legacy storage, migration manager and facade.
// The database is opened lazily on first use.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger(cmd.ErrOrStderr(), opts.Verbose)
	now := time.Now

	st := store.New(cfg.DBPath, store.WithLogger(logger), store.WithClock(now))
	file := legacy.NewFile(cfg.LegacyPath, legacy.WithLogger(logger), legacy.WithClock(now))
	mgr := migrate.NewManager(st, file, migrate.WithLogger(logger), migrate.WithClock(now))
	facade := datasync.New(st, datasync.Options{
		Compressor: imagecodec.New(cfg.ImageQuality, cfg.ImageMaxWidth),
		Migrator:   mgr,
		Logger:     logger,
		Clock:      now,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		now:      now,
		store:    st,
		legacy:   file,
		migrator: mgr,
		facade:   facade,
	}, nil
}

// inventory returns a loaded inventory service.
func (a *app) inventory(cmd *cobra.Command) (*inventory.Service, error) {
	svc := inventory.New(a.facade, inventory.WithLogger(a.logger), inventory.WithClock(a.now))
	if err := svc.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return svc, nil
}

// ready opens the database so that an unusable path fails the command
// instead of reading as an empty inventory.
func (a *app) ready(ctx context.Context) error {
	if _, err := a.store.Count(ctx, store.KindMetadata); err != nil {
		return err
	}
	return nil
}

func (a *app) Close() error {
	return a.store.Close()
}
