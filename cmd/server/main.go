/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the casual pay server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Initialize SQLite store
  3. Seed an empty store from DATA_DIR, if set
  4. Create engine, API handler and recompute scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -addr    HTTP listen address (APP_ADDR, default :8080)
  -db      SQLite database path (DB_PATH, default ./casualpay.db)
           Use ":memory:" for in-memory database
  -data    Seed directory with config.json, user.json, shifts.json
           (DATA_DIR)
  -env     .env file to load (default .env)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the recompute scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database, seeded from the sample data
  ./server -db="./data/casualpay.db" -data="./data"

  # Run with in-memory database
  ./server -db=":memory:" -data="./data"

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/casual-pay/api"
	"github.com/warp/casual-pay/config"
	"github.com/warp/casual-pay/engine"
	"github.com/warp/casual-pay/store/jsonfile"
	"github.com/warp/casual-pay/store/sqlite"
)

func main() {
	// Flags
	envFile := flag.String("env", ".env", "Environment file to load")
	addr := flag.String("addr", "", "HTTP listen address (overrides APP_ADDR)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	dataDir := flag.String("data", "", "Seed data directory (overrides DATA_DIR)")
	flag.Parse()

	cfg := config.Load(*envFile)
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if cfg.DataDir != "" {
		if err := seed(context.Background(), store, jsonfile.Open(cfg.DataDir)); err != nil {
			log.Fatalf("Failed to seed from %s: %v", cfg.DataDir, err)
		}
	}

	// Initialize engine and handler
	eng := engine.New(store, logger)
	handler := api.NewHandler(store, eng)
	handler.MaxUploadBytes = cfg.MaxUploadBytes

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORSOrigins,
		EnableReset:    cfg.Environment != "production",
	})

	// Recompute scheduler
	scheduler := api.NewRecomputeScheduler(store, eng)
	scheduler.CheckInterval = cfg.RecomputeInterval
	scheduler.Enabled = cfg.RecomputeOnStart && cfg.RecomputeInterval > 0
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on %s", displayAddr(cfg.Addr))
		log.Printf("📊 API available at %s/api", displayAddr(cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return fmt.Sprintf("http://%s", addr)
}

// seed copies the data directory into an empty store. A store that already
// has an award config is left alone.
func seed(ctx context.Context, store *sqlite.Store, dir *jsonfile.Dir) error {
	existing, err := store.AwardConfigDoc(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("[Seed] Store already configured, skipping %s", dir.Path)
		return nil
	}

	doc, err := dir.ConfigDoc()
	if err != nil {
		return err
	}
	if doc != nil {
		skips, err := store.SaveAwardConfig(ctx, doc)
		if err != nil {
			return fmt.Errorf("%s: %w", jsonfile.ConfigFile, err)
		}
		for _, s := range skips {
			log.Printf("[Seed] Skipped allowance %q (%s)", s.Subject, s.Ref)
		}
	}

	employers, err := dir.Employers(ctx)
	if err != nil {
		return err
	}
	for _, e := range employers {
		if err := store.SaveEmployer(ctx, e); err != nil {
			return err
		}
		periods, err := dir.PayPeriods(ctx, e.ID)
		if err != nil {
			return err
		}
		if len(periods) > 0 {
			if err := store.ReplacePayPeriods(ctx, e.ID, periods); err != nil {
				return err
			}
		}
	}

	shifts, err := dir.Shifts(ctx)
	if err != nil {
		return err
	}
	if len(shifts) > 0 {
		if err := store.SaveShifts(ctx, shifts); err != nil {
			return err
		}
	}

	log.Printf("[Seed] Loaded %d employers and %d shifts from %s", len(employers), len(shifts), dir.Path)
	return nil
}
