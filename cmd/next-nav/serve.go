package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"next-nav-server/internal/config"
	"next-nav-server/internal/directive"
	"next-nav-server/internal/filesystem"
	"next-nav-server/internal/lock"
	"next-nav-server/internal/logging"
	"next-nav-server/internal/service"
	"next-nav-server/internal/session"
	"next-nav-server/internal/transport"
	"next-nav-server/internal/tree"
)

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the navigator over HTTP/WebSocket or stdio",
		Long: `serve validates the workspace and starts one transport.

Configuration is read, in increasing precedence, from defaults, the YAML file
(--config, or next-nav.yaml in the working or user config directory), .env and
NEXTNAV_* environment variables, and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, os.Stdin, os.Stdout)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file")
	return cmd
}

// runServer wires the navigator and runs the configured transport until ctx
// is done or the transport stops. stdin and stdout are used by stdio only.
func runServer(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	if err := logging.Init(cfg.Logging()); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logging.Sync() }()
	logger := logging.Named("main")
	logEffectiveConfig(logger, cfg)

	fsAdapter := filesystem.NewDefaultFileSystemAdapter()
	lockManager, err := lock.NewLockManager(cfg.LockDir)
	if err != nil {
		return err
	}
	builder := tree.NewBuilder(fsAdapter, directive.NewScanner(fsAdapter))
	navigator, err := service.NewDefaultNavigatorService(fsAdapter, lockManager, builder, cfg)
	if err != nil {
		return fmt.Errorf("initialize navigator: %w", err)
	}
	logger.Info("core services initialized", zap.String("workspace", navigator.Workspace()))

	serverDone := make(chan error, 1)

	switch cfg.Transport {
	case "http":
		sessions, err := session.NewStore(cfg.SessionCapacity)
		if err != nil {
			return err
		}
		httpHandler := transport.NewHTTPHandler(navigator, sessions)
		go func() {
			serverDone <- httpHandler.StartServer(cfg.Port, cfg.OperationTimeoutSec, cfg.OperationTimeoutSec)
		}()

		select {
		case err := <-serverDone:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.OperationTimeoutSec)*time.Second)
		defer cancel()
		if err := httpHandler.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed", zap.Error(err))
			return err
		}
		return <-serverDone

	case "stdio":
		stdioHandler := transport.NewStdioHandler(navigator, nil)
		go func() {
			serverDone <- stdioHandler.Start(stdin, stdout)
		}()

		select {
		case err := <-serverDone:
			return err
		case <-ctx.Done():
			// The reader cannot be interrupted; the process exits with it.
			logger.Info("shutdown signal received, leaving stdio handler")
			return nil
		}

	default:
		return fmt.Errorf("unsupported transport type: %s", cfg.Transport)
	}
}

func logEffectiveConfig(logger *zap.Logger, cfg *config.Config) {
	fields := []zap.Field{
		zap.String("workspace", cfg.WorkingDirectory),
		zap.String("transport", cfg.Transport),
		zap.Int("max_file_size_mb", cfg.MaxFileSizeMB),
		zap.Int("operation_timeout_sec", cfg.OperationTimeoutSec),
		zap.String("trash_dir", cfg.TrashDir),
		zap.String("lock_dir", cfg.LockDir),
		zap.String("version", version),
	}
	if cfg.Transport == "http" {
		fields = append(fields, zap.Int("port", cfg.Port), zap.Int("session_capacity", cfg.SessionCapacity))
	}
	logger.Info("effective configuration", fields...)
}
