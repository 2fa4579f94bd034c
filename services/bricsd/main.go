package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bricsengine/config"
	"bricsengine/core"
	"bricsengine/core/state"
	"bricsengine/observability/logging"
	telemetry "bricsengine/observability/otel"
	"bricsengine/services/bricsd/journal"
	"bricsengine/services/bricsd/server"
	"bricsengine/storage"
)

func main() {
	var cfgPath string
	defaultPath := strings.TrimSpace(os.Getenv("BRICSD_CONFIG"))
	if defaultPath == "" {
		defaultPath = "services/bricsd/config.yaml"
	}
	flag.StringVar(&cfgPath, "config", defaultPath, "path to bricsd configuration file (.yaml or .toml)")
	flag.Parse()

	if err := run(cfgPath); err != nil {
		log.Fatalf("bricsd: %v", err)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.Setup("bricsd", cfg.Environment, cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	tcfg := cfg.Telemetry
	tcfg.ServiceName = "bricsd"
	tcfg.Environment = cfg.Environment
	shutdownTelemetry, err := telemetry.Init(context.Background(), tcfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("bricsd: telemetry shutdown", slog.String("error", err.Error()))
		}
	}()

	db, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	receipts, err := journal.Open(cfg.Journal.DSN)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer receipts.Close()

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	engine, err := core.NewEngine(state.NewManager(db), engineCfg,
		core.WithJournal(receipts),
		core.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	srv, err := server.New(server.Config{
		ListenAddress:   cfg.ListenAddress,
		ShutdownTimeout: cfg.Shutdown.Duration,
		Auth: server.AuthConfig{
			HMACSecret: cfg.Auth.Secret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  cfg.Auth.Leeway.Duration,
		},
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	}, engine, logger)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("bricsd: starting",
		slog.String("storage", cfg.Storage.Backend),
		logging.MaskAddress("authority", engineCfg.Authority),
	)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("bricsd: stopped")
	return nil
}
