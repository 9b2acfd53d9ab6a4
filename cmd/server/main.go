/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cooperative credit engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment, see config/config.go)
  2. Initialize SQLite store
  3. Seed the product catalog with the standard credit lines
  4. Create the credit service and API handler
  5. Configure HTTP router and start the delinquency scheduler
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the delinquency scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  DATABASE_PATH=./data/credit.db ./server

  # Run on different port with the scheduler off
  SERVER_PORT=3000 SCHEDULER_ENABLED=false ./server

SEE ALSO:
  - config/config.go: Configuration sources and defaults
  - api/server.go: Router configuration
  - api/scheduler.go: Periodic delinquency evaluation
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coopfin/credit-engine/api"
	"github.com/coopfin/credit-engine/config"
	"github.com/coopfin/credit-engine/credit"
	"github.com/coopfin/credit-engine/product"
	"github.com/coopfin/credit-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed the catalog with the standard credit lines. Branch staff can
	// add cooperative-specific products over the API.
	catalog := product.NewCatalog()
	if err := catalog.LoadAll([]string{
		product.StandardConsumerJSON("consumer-standard", "Standard Consumer Credit", "18", "5000"),
		product.EmergencyCreditJSON("emergency", "Emergency Credit"),
		product.ProductiveCreditJSON("productive", "Productive Credit", "20000"),
	}); err != nil {
		log.Fatalf("Failed to load product catalog: %v", err)
	}

	// Initialize service and handler
	service := credit.NewService(store)
	handler := api.NewHandler(service, store, catalog, cfg.DefaultParams())

	// Create router
	router := api.NewRouter(handler)

	// Start the delinquency scheduler
	scheduler := api.NewDelinquencyScheduler(store, handler)
	scheduler.CheckInterval = time.Duration(cfg.SchedulerIntervalHours) * time.Hour
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Credit engine listening on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
