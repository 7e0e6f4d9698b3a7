package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/config"
	"github.com/rovshanmuradov/launchpad-settlement/internal/utils/logger"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the settlement HTTP service",
	Long: `Start the settlement HTTP service. Storage is PostgreSQL unless use_memory
is set; migrations are applied on startup.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "override listen_addr")
}

// loadRuntime reads the configuration and builds the process logger.
func loadRuntime() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging || debug
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh := NewShutdownHandler(log.Logger, defaultShutdownTimeout)
	app, err := buildApp(ctx, cfg, log.Logger, sh)
	if err != nil {
		log.Error("Failed to initialize service", zap.Error(err))
		return errors.Join(err, sh.Shutdown(context.Background()))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	sh.Add("http_server", srv.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Settlement service listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-serveErr:
		log.Error("HTTP server stopped", zap.Error(runErr))
	}
	stop()

	return errors.Join(runErr, sh.Shutdown(context.Background()))
}
