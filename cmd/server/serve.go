package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"arogya-swarm/backend/internal/api"
	"arogya-swarm/backend/internal/auth"
	"arogya-swarm/backend/internal/mcp"
	"arogya-swarm/backend/internal/notify"
	"arogya-swarm/backend/internal/scheduler"
	"arogya-swarm/backend/internal/simulation"
	"arogya-swarm/backend/internal/tls"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the API and run the periodic surge scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configFile)
		},
	}
}

func serve(ctx context.Context, configFile string) error {
	a, err := bootstrap(ctx, configFile)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	logger.Info("Starting Arogya Swarm", "environment", cfg.Environment, "hospital", cfg.Hospital.Name)

	graph, err := a.buildSwarm(ctx)
	if err != nil {
		return fmt.Errorf("failed to build workflow: %w", err)
	}
	catalog, err := simulation.Builtin()
	if err != nil {
		return err
	}
	broker := notify.NewBroker()

	sched, err := scheduler.New(graph, scheduler.Options{
		Interval:   cfg.Scheduler.Interval,
		RunTimeout: cfg.Workflow.RunTimeout,
		Store:      a.store,
		Publisher:  broker,
		Source:     catalog.NewSource(cfg.Scheduler.Scenario),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("auth initialization failed: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("arogya-swarm"))

	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	api.NewServer(api.Deps{
		Runs:            sched,
		Scenarios:       catalog,
		DefaultScenario: cfg.Scheduler.Scenario,
		Store:           a.store,
		Resources:       a.store,
		Stream:          broker,
		DB:              a.store,
		Logger:          logger,
	}).Register(e, echo.WrapMiddleware(authz.RequireAuth))
	api.RegisterDocs(e, cfg.Auth.OktaDomain, cfg.Auth.SwaggerClientID, auth.AllScopes)

	mcpServer := mcp.NewServer(sched, catalog)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	mcpHandler := echo.WrapHandler(authz.RequireAuth(mcpHandlers))
	e.Any("/mcp", mcpHandler)
	e.Any("/mcp/*", mcpHandler)

	logger.Info("HTTP surface mounted")

	if cfg.Scheduler.Enabled {
		go func() {
			if err := sched.Start(ctx); err != nil {
				logger.Error("Scheduler exited", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     e,
		ReadTimeout: 15 * time.Second,
		// On-demand runs answer only after the whole workflow completes.
		WriteTimeout: cfg.Workflow.RunTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", server.Addr, "tls", cfg.TLS.Enable)
		if !cfg.TLS.Enable {
			serverErrors <- server.ListenAndServe()
			return
		}
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			serverErrors <- errors.New("tls enabled but cert_file or key_file not set")
			return
		}
		created, err := tls.EnsureDevCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			serverErrors <- fmt.Errorf("failed to prepare certificate: %w", err)
			return
		}
		if created {
			logger.Warn("Generated self-signed certificate", "cert", cfg.TLS.CertFile)
		}
		serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		if err := server.Close(); err != nil {
			logger.Error("Server close error", "error", err)
		}
	}
	logger.Info("Server stopped gracefully")
	return nil
}
