package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"Todo/internal/app"
	"Todo/internal/config"
	"Todo/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.App.Version == "dev" {
		cfg.App.Version = version
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Info("config loaded", "env", cfg.App.Env, "store", cfg.Store.Driver)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("app init", "err", err)
		return err
	}
	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("HTTP server error", "err", err)
		_ = application.Close(context.Background())
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown", "err", err)
	}
	return application.Close(ctx)
}
