package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/abhisek/tutorflow/internal/app"
	"github.com/abhisek/tutorflow/internal/config"
	"github.com/abhisek/tutorflow/internal/store"
	"github.com/abhisek/tutorflow/internal/telemetry"
	"github.com/spf13/cobra"
)

// loadConfig reads the config file and environment, applying --log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath(cmd))
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

// deps holds everything a command needs to orchestrate requests.
type deps struct {
	cfg    *config.Config
	app    *app.App
	store  *store.Store
	logger *slog.Logger

	shutdown telemetry.ShutdownFunc
}

func (r *deps) Close() {
	if r.shutdown != nil {
		_ = r.shutdown(context.Background())
	}
	if r.store != nil {
		r.store.Close()
	}
}

// setup loads config, opens the store and builds the orchestrator.
func setup(cmd *cobra.Command) (*deps, error) {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := telemetry.NewLogger(cfg.Log.Format, cfg.Log.Level, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	shutdown, err := telemetry.SetupTracing(cfg.Tracing.Enabled, "tutorflow", os.Stderr)
	if err != nil {
		return nil, err
	}
	rt := &deps{cfg: cfg, logger: logger, shutdown: shutdown}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt.store = st

	a, err := app.New(ctx, app.Options{Config: cfg, Store: st, Logger: logger})
	if err != nil {
		rt.Close()
		return nil, err
	}
	if a.Offline {
		fmt.Fprintln(os.Stderr, "LLM provider not configured; using offline keyword routing.")
	}
	rt.app = a
	return rt, nil
}
