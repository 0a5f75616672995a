/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bank admin file service. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Fetch the bank-holiday calendar (fatal if unreachable - no
     reconciliation window can be computed without it)
  3. Build the upstream API client and the SQLite file cache
  4. Wire the API handler and router
  5. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite file-cache path (default: bank-admin.db)
           Use ":memory:" for an in-memory cache

ENVIRONMENT:
  UPSTREAM_API_URL                Base URL of the prisoner-money API (required)
  UPSTREAM_API_TOKEN              Bearer token for the upstream API
  BANK_HOLIDAY_URL                Holiday feed URL (default: gov.uk feed)
  ADI_TEMPLATE_FILEPATH           Path to the ADI journal .xlsm template
  DISBURSEMENT_TEMPLATE_FILEPATH  Path to the disbursements .xlsm template
  BANK_STMT_ACCOUNT_NUMBER        Statement account number
  BANK_STMT_SORT_CODE             Statement sort code
  BANK_STMT_CURRENCY              Statement currency (default: GBP)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the file cache
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: File cache implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mtp/bank-admin/api"
	"github.com/mtp/bank-admin/calendar"
	"github.com/mtp/bank-admin/statement"
	"github.com/mtp/bank-admin/store/sqlite"
	"github.com/mtp/bank-admin/upstream"
)

func main() {
	// Flags and environment
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "bank-admin.db", "SQLite file-cache path")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	upstreamURL := os.Getenv("UPSTREAM_API_URL")
	if upstreamURL == "" {
		log.Fatal("UPSTREAM_API_URL is required")
	}

	// The holiday calendar is a hard startup dependency.
	cal, err := calendar.FromFeed(context.Background(), os.Getenv("BANK_HOLIDAY_URL"))
	if err != nil {
		log.Fatalf("Failed to load bank-holiday calendar: %v", err)
	}

	client, err := upstream.NewClient(upstreamURL, os.Getenv("UPSTREAM_API_TOKEN"))
	if err != nil {
		log.Fatalf("Failed to build upstream client: %v", err)
	}

	// Initialize the file cache
	cache, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize file cache: %v", err)
	}
	defer cache.Close()

	currency := os.Getenv("BANK_STMT_CURRENCY")
	if currency == "" {
		currency = "GBP"
	}

	handler := api.NewHandler(client, cal, cache, api.Config{
		ADITemplatePath:          os.Getenv("ADI_TEMPLATE_FILEPATH"),
		DisbursementTemplatePath: os.Getenv("DISBURSEMENT_TEMPLATE_FILEPATH"),
		StatementAccount: statement.Account{
			SortCode:      os.Getenv("BANK_STMT_SORT_CODE"),
			AccountNumber: os.Getenv("BANK_STMT_ACCOUNT_NUMBER"),
		},
		StatementCurrency: currency,
	})

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // file generation calls the upstream API
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
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
