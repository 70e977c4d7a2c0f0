package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinboard/internal/app"
	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/camera"
	"github.com/dukerupert/kinboard/internal/config"
	"github.com/dukerupert/kinboard/internal/database"
	"github.com/dukerupert/kinboard/internal/docstore"
	"github.com/dukerupert/kinboard/internal/identity"
	"github.com/dukerupert/kinboard/internal/lifecycle"
	"github.com/dukerupert/kinboard/internal/logging"
	"github.com/dukerupert/kinboard/internal/storage"
)

// env is a started runtime and everything it runs on.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *sql.DB
	bus      *bus.Bus
	identity *identity.Service
	store    *storage.Storage
	rt       *app.Runtime
}

func loadConfig(cmd *cobra.Command, o *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigDir, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set KINBOARD_SECRET or --secret)", err)
	}
	return cfg, nil
}

// openEnv starts the runtime and waits until the cached session, if any,
// has been restored and its family loaded.
func openEnv(cmd *cobra.Command, o *globalOptions) (*env, error) {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.LogLevel, cmd.ErrOrStderr())

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	b := bus.New(logger)
	docs := docstore.New(db, logger)
	ids := identity.New(db, docs, identity.NewDiskCache(cfg.TokenDir), b, logger, identity.Options{
		Secret: []byte(cfg.Secret),
	})
	store := storage.New(docs.Client(), b, logger.With("component", "storage"), storage.Options{
		Debounce:  cfg.Debounce,
		OnFailure: cfg.FailurePolicy,
	})

	deps := app.Deps{
		Bus:        b,
		Storage:    store,
		Identity:   ids,
		Versions:   lifecycle.NewVersionChecker(lifecycle.VersionConfig{Current: cfg.Version, ManifestURL: cfg.ManifestURL}, b, logger),
		Visibility: lifecycle.NewVisibility(b),
	}
	if cfg.CameraPath != "" {
		var images camera.Uploader
		if cfg.S3.Configured() {
			images = camera.NewImageStore(cfg.S3)
		}
		deps.Camera = camera.NewService(&camera.FileCamera{Path: cfg.CameraPath}, images, b, logger)
	}

	rt := app.New(deps, logger, app.Options{
		Reload: func(version string) {
			logger.Info("new version available, restart to update", "version", version)
		},
	})
	rt.Start()
	rt.Settle()

	return &env{cfg: cfg, logger: logger, db: db, bus: b, identity: ids, store: store, rt: rt}, nil
}

func (e *env) Close() {
	e.rt.Close()
	if err := e.db.Close(); err != nil {
		e.logger.Warn("close database", "error", err)
	}
}

// withEnv runs fn against a started runtime.
func withEnv(o *globalOptions, fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, o)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, args, e)
	}
}
