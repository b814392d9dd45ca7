package main

import (
	"context"
	"fmt"
	"os"

	"arogya-swarm/backend/internal/agents"
	"arogya-swarm/backend/internal/config"
	"arogya-swarm/backend/internal/dispatch"
	"arogya-swarm/backend/internal/forecast"
	"arogya-swarm/backend/internal/logging"
	"arogya-swarm/backend/internal/repository"
	"arogya-swarm/backend/internal/retry"
	"arogya-swarm/backend/internal/services"
	"arogya-swarm/backend/internal/workflow"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRoot().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:          "arogya-swarm",
		Short:        "Hospital surge prediction and response agents",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: ./config.yaml)")
	root.AddCommand(serveCmd(&configFile), runCmd(&configFile))
	return root
}

// app is what every command needs after configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	pool   *pgxpool.Pool
	store  *repository.PostgresStore
}

func bootstrap(ctx context.Context, configFile string) (*app, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration loading failed: %w", err)
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	pool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}
	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Database connected", "host", cfg.DB.Host, "name", cfg.DB.Name)
	return &app{cfg: cfg, logger: logger, pool: pool, store: store}, nil
}

func (a *app) close() {
	a.pool.Close()
}

// buildSwarm wires the external services into the workflow graph.
func (a *app) buildSwarm(ctx context.Context) (*workflow.Graph, error) {
	cfg := a.cfg
	reasoner, err := services.NewGeminiReasoner(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Temperature)
	if err != nil {
		return nil, err
	}

	var forecaster services.Forecaster
	if cfg.Forecaster.URL != "" {
		forecaster = services.NewHTTPForecaster(cfg.Forecaster.URL, cfg.Forecaster.HorizonDays)
		a.logger.Info("Using forecasting sidecar", "url", cfg.Forecaster.URL)
	} else {
		forecaster = services.NewSeasonalForecaster(cfg.Forecaster.HorizonDays)
		a.logger.Info("Using local seasonal forecaster")
	}

	return agents.NewSwarm(
		agents.Deps{
			Reasoner:   reasoner,
			Forecaster: forecaster,
			Resources:  a.store,
			History:    a.store,
			Logger:     a.logger,
		},
		settingsFrom(cfg),
	)
}

func settingsFrom(cfg *config.Config) agents.Settings {
	w := cfg.Workflow
	return agents.Settings{
		Policy: retry.Policy{
			Attempts:        w.RetryAttempts,
			InitialInterval: w.RetryInitialInterval,
			MaxInterval:     w.RetryMaxInterval,
			Timeout:         w.CallTimeout,
		},
		Blend: forecast.Config{
			AgreementThreshold: w.AgreementThreshold,
			AgreementBonus:     w.AgreementBonus,
			ConfidenceCap:      w.ConfidenceCap,
		},
		Staff: dispatch.StaffRules{
			FatigueThreshold: w.FatigueThreshold,
			PatientsPerStaff: w.PatientsPerStaff,
			RatioDepartments: w.RatioDepartments,
		},
		HistoryDays:         cfg.Forecaster.HistoryDays,
		DispatchConcurrency: w.DispatchConcurrency,
		HospitalName:        cfg.Hospital.Name,
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
