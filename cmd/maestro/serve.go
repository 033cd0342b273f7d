package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/example/maestro/internal/api"
	"github.com/example/maestro/internal/approval"
	"github.com/example/maestro/internal/config"
	"github.com/example/maestro/internal/gateway"
	"github.com/example/maestro/internal/logger"
	"github.com/example/maestro/internal/orchestrator"
	"github.com/example/maestro/internal/registry"
	"github.com/example/maestro/internal/risk"
	"github.com/example/maestro/internal/router"
	"github.com/example/maestro/internal/store"
	"github.com/example/maestro/internal/telemetry"
	"github.com/example/maestro/pkg/models"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestration HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		JSON:       cfg.Logging.JSON,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	db, err := store.Open(dbPath, store.WithMaxTelemetry(cfg.Storage.MaxTelemetryRecords))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	log.Info("store ready", "path", dbPath)

	reg := registry.New(db, log)
	if err := reg.SeedDefaults(); err != nil {
		return fmt.Errorf("seed model roster: %w", err)
	}
	tel := telemetry.New(db, log)
	rtr := router.New(reg, tel, cfg.Engine.SuccessThreshold, log)

	policy := risk.DefaultPolicy()
	if cfg.Engine.RiskPolicyFile != "" {
		policy, err = risk.LoadPolicy(cfg.Engine.RiskPolicyFile)
		if err != nil {
			return fmt.Errorf("load risk policy: %w", err)
		}
		log.Info("risk policy loaded", "path", cfg.Engine.RiskPolicyFile)
	}

	gate := approval.New(approval.Config{
		Enabled:     cfg.Approval.Enabled,
		MinRisk:     models.Risk(cfg.Approval.MinRisk),
		AutoApprove: cfg.Approval.AutoApprove,
		Timeout:     cfg.Approval.Timeout,
	}, db, policy, log)

	gw, err := buildGateway(cfg, log)
	if err != nil {
		return err
	}
	gw = gateway.WithTimeout(gw, cfg.Engine.TaskTimeout)

	svc := orchestrator.New(cfg.Engine, db, reg, tel, rtr, gate, gw, log)
	server := api.NewServer(svc, reg, tel, cfg)

	port := servePort
	if port == "" {
		port = cfg.Server.Port
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: server.Routes(),
	}

	go func() {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped")
	return nil
}

// buildGateway picks the provider. Without an API key the engine runs on
// the scriptable mock so the HTTP surface stays usable in development.
func buildGateway(cfg *config.Config, log *slog.Logger) (gateway.Gateway, error) {
	if cfg.Anthropic.APIKey != "" {
		return gateway.NewAnthropic(cfg.Anthropic.APIKey)
	}
	log.Warn("no API key configured, using mock gateway")
	return &gateway.Mock{Default: `{"result": "mock gateway reply", "success": true}`}, nil
}
