/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the loyalty engine server: configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse flags
  2. Load YAML config with env overrides
  3. Open the SQLite store and apply seeds
  4. Build the loyalty service and router
  5. Serve with graceful shutdown on SIGINT/SIGTERM

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080, or PORT env)
  -db      SQLite database path (default: loyalty.db, or DB_PATH env;
           use ":memory:" for an in-memory database)
  -config  Optional YAML config file (thresholds, earn rate, reward seeds)

EXAMPLES:
  ./server -db="./data/loyalty.db" -config="./loyalty.yaml"
  ./server -db=":memory:"
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

	"github.com/beanloop/loyalty-engine/api"
	"github.com/beanloop/loyalty-engine/config"
	"github.com/beanloop/loyalty-engine/loyalty"
	"github.com/beanloop/loyalty-engine/store/sqlite"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	cfgPath := flag.String("config", "", "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := seed(ctx, store, cfg); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	svc := loyalty.NewService(store)
	svc.EarnRate = loyalty.NewEarnRate(cfg.EarnRate)

	router := api.NewRouter(api.NewHandler(svc))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Loyalty engine listening on http://localhost:%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seed writes the configured thresholds and, when the catalog is empty,
// the reward seeds.
func seed(ctx context.Context, store *sqlite.Store, cfg *config.Config) error {
	if err := store.WriteThresholds(ctx, cfg.Thresholds); err != nil {
		return err
	}

	existing, err := store.ListRewards(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, r := range cfg.SeedRewards() {
		r.CreatedAt = time.Now().UTC()
		if err := store.SaveReward(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
