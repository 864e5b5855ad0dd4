package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wingyshop/internal/app"
	"wingyshop/internal/config"
	"wingyshop/internal/repositories"
	"wingyshop/pkg/logger"
)

// rootCmd serves the marketplace when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "wingyshop",
	Short: "Wingy Shop marketplace server.",
	Long: `Wingy Shop is a marketplace where users list products and trade them for
Wingy Coin. Purchases settle once both buyer and seller confirm.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server.",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema for the configured SQL driver.",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.LogLevel(cfg.LogLevel), os.Stdout, cfg.IsDevelopment())
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	defer a.Close()

	if err := a.ConsumeEvents(); err != nil {
		log.Error("failed to start event consumer", map[string]interface{}{"error": err})
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]interface{}{
			"port":   cfg.Server.Port,
			"driver": cfg.Database.Driver,
		})
		errCh <- a.Fiber.Listen(cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down server", nil)
	if err := a.Fiber.Shutdown(); err != nil {
		log.Error("error during shutdown", map[string]interface{}{"error": err})
	}
	log.Info("server gracefully stopped", nil)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "memory" {
		return fmt.Errorf("DB_DRIVER is memory, nothing to migrate")
	}

	db, err := repositories.OpenDatabase(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	if err := repositories.Migrate(db); err != nil {
		return err
	}
	log.Info("database migrated", map[string]interface{}{"driver": cfg.Database.Driver})
	return nil
}
