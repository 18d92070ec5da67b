package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freight/cmd"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:          "freight",
		Short:        "Freight shipment lifecycle service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment")
	root.AddCommand(newServeCmd(&envFile), newMigrateCmd(&envFile))
	return root
}

func newServeCmd(envFile *string) *cobra.Command {
	var autoMigrate bool
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the document retry job",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *envFile, autoMigrate)
		},
	}
	c.Flags().BoolVar(&autoMigrate, "migrate", true, "bring the store schema up to date before serving")
	return c
}

func newMigrateCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the store schema up to date and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := cmd.LoadConfig(*envFile)
			if err != nil {
				return err
			}
			logger := cmd.SetupLogger(cfg)

			app, err := cmd.NewCompositionRoot(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if err = app.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("store schema is up to date", "driver", cfg.StoreDriver)
			return nil
		},
	}
}

func serve(ctx context.Context, envFile string, autoMigrate bool) error {
	cfg, err := cmd.LoadConfig(envFile)
	if err != nil {
		return err
	}
	logger := cmd.SetupLogger(cfg)

	app, err := cmd.NewCompositionRoot(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("shutdown", "error", closeErr)
		}
	}()

	if autoMigrate {
		if err = app.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err = app.ConnectAdapters(); err != nil {
		return err
	}

	jobManager := app.CreateJobManager()
	if err = jobManager.StartAll(); err != nil {
		return err
	}
	defer jobManager.StopAll()

	e, err := app.CreateWebServer(ctx)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "port", cfg.HTTPPort, "store", cfg.StoreDriver)
		serveErr <- e.Start(fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort))
	}()

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
