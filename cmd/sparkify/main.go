package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/analytics"
	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/config"
	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/loader"
	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/migrations"
	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/pipeline"
	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/schema"
	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/server"
	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/transform"
	"github.com/raahikwueto/Sparkify-Data-Warehouse/internal/warehouse"
)

const usage = `Usage: sparkify [-config dwh.yaml] <command>

Commands:
  reset   Drop and recreate all staging and star-schema relations
  run     Load staging from object storage, then derive the star schema
  serve   Serve the report endpoints over HTTP
`

func main() {
	configPath := flag.String("config", "dwh.yaml", "Path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	adapter, err := warehouse.NewAdapter(
		cfg.Warehouse.DSN,
		cfg.Warehouse.MaxOpenConns,
		cfg.Warehouse.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to connect to warehouse", "error", err)
		os.Exit(1)
	}
	defer adapter.Close()

	if err := migrations.RunMigrations(adapter.DB(), cfg.Warehouse.Dialect, cfg.Warehouse.AutoMigrate); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	if err := dispatch(ctx, command, cfg, adapter); err != nil {
		slog.Error("Command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, command string, cfg *config.Config, adapter *warehouse.Adapter) error {
	dialect := schema.Postgres
	if cfg.Warehouse.Dialect == config.DialectRedshift {
		dialect = schema.Redshift
	}

	switch command {
	case "reset", "run":
		l, err := buildLoader(ctx, cfg, adapter)
		if err != nil {
			return err
		}
		p := pipeline.New(adapter.DB(), dialect, l, transform.New(adapter.DB()))
		if command == "reset" {
			return p.Reset(ctx)
		}
		return p.Run(ctx)

	case "serve":
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := server.New(addr, adapter.DB(), cfg.Server.Mode)
		analytics.NewReporter(adapter.DB()).RegisterRoutes(srv.Engine)
		return srv.Run(ctx)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func buildLoader(ctx context.Context, cfg *config.Config, adapter *warehouse.Adapter) (loader.Loader, error) {
	switch cfg.Loader.Mode {
	case config.StreamMode:
		store, err := loader.NewS3Store(ctx, cfg.S3.Region)
		if err != nil {
			return nil, err
		}
		return loader.NewStreamLoader(adapter.DB(), store, loader.StreamConfig{
			LogData:   cfg.S3.LogData,
			SongData:  cfg.S3.SongData,
			MaxErrors: cfg.Loader.MaxErrors,
		}), nil
	default:
		return loader.NewCopyLoader(adapter.DB(), loader.CopyConfig{
			LogData:     cfg.S3.LogData,
			LogJSONPath: cfg.S3.LogJSONPath,
			SongData:    cfg.S3.SongData,
			Region:      cfg.S3.Region,
			RoleARN:     cfg.IAMRole.ARN,
			MaxErrors:   cfg.Loader.MaxErrors,
		}), nil
	}
}
