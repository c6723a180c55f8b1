package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/llm-router/internal/di"
	"github.com/omarluq/llm-router/internal/ro"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the llm-router proxy server",
	Long: `Start the proxy server that relays requests to the active provider and
serves the admin API for providers, settings, and request telemetry.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	configPath := cfgFile
	if configPath == "" {
		configPath = findConfigFile()
	}

	container, err := di.NewContainer(configPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to create container")
		return err
	}

	// Resolve the logger first so every later startup error is structured.
	loggerSvc, err := di.Invoke[*di.LoggerService](container)
	if err != nil {
		log.Error().Err(err).Str("path", configPath).Msg("failed to initialize")
		return err
	}

	log.Logger = *loggerSvc.Logger
	zerolog.DefaultContextLogger = loggerSvc.Logger

	serverSvc, err := di.Invoke[*di.ServerService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize services")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	cfgSvc.StartWatching(ctx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- serverSvc.Server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	go func() {
		if sig, waitErr := ro.WaitForShutdown(ctx); waitErr == nil {
			shutdown <- sig
		}
	}()

	log.Info().Str("listen", serverSvc.Server.Addr()).Msg("starting llm-router")

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			return err
		}
	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := serverSvc.Server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}

	// Container shutdown drains the telemetry writer and closes the store.
	if err := container.Shutdown(); err != nil {
		log.Error().Err(err).Msg("container shutdown error")
	}

	log.Info().Msg("server stopped")

	return nil
}

// findConfigFile searches for config.yaml in default locations.
func findConfigFile() string {
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		p := filepath.Join(home, ".config", "llm-router", defaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return defaultConfigFile
}
