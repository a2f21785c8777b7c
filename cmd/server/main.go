/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the detention ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags (cobra)
  2. Load TOML configuration
  3. Build the zap logger
  4. Initialize SQLite store
  5. Wire the domain services and HTTP router
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (configurable timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with defaults (detention.db, :8080)
  ./server serve

  # Run with a config file
  ./server serve --config detention.toml

  # Run with an in-memory database
  ./server serve --db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration schema
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kofiarhin/detention-desk-sub000/aggregate"
	"github.com/kofiarhin/detention-desk-sub000/api"
	"github.com/kofiarhin/detention-desk-sub000/config"
	"github.com/kofiarhin/detention-desk-sub000/ledger"
	"github.com/kofiarhin/detention-desk-sub000/logging"
	"github.com/kofiarhin/detention-desk-sub000/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Detention minute-ledger server",
	Long: `HTTP server for the school detention minute ledger: incidents,
detention lifecycle, reward offsets, and per-tenant dashboards.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to TOML config file")
	serveCmd.Flags().String("db", "", "SQLite database path (overrides config)")
	serveCmd.Flags().Int("port", 0, "HTTP server port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	dbOverride, _ := cmd.Flags().GetString("db")
	portOverride, _ := cmd.Flags().GetInt("port")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbOverride != "" {
		cfg.Database.Path = dbOverride
	}
	if portOverride != 0 {
		cfg.Server.Port = portOverride
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	svc := ledger.NewService(store, log)
	alloc := ledger.NewAllocator(store, log)
	bulk := ledger.NewBulkExecutor(store, log)
	agg := aggregate.NewService(store, log)

	handler := api.NewHandler(svc, alloc, bulk, agg)
	router := api.NewRouter(handler, api.RouterOptions{Metrics: cfg.Metrics.Enabled})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.Addr()),
			zap.String("db", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
