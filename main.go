package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"bitwash/adapters/postgres/migrations"
	"bitwash/internal/api"
	"bitwash/internal/config"
	"bitwash/internal/container"
	"bitwash/internal/errors"
	"bitwash/internal/ops"
)

func main() {
	// Load .env if present; real deployments set env directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer db.Close()

	if err := migrations.NewMigrator(db.DB).Up(context.Background()); err != nil {
		log.Fatalf("Migration error: %v", err)
	}

	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Container error: %v", err)
	}
	if err := c.InitWithDatabase(db); err != nil {
		log.Fatalf("Container error: %v", err)
	}
	if err := c.InitOracles(); err != nil {
		log.Fatalf("Oracle error: %v", err)
	}
	log.Printf("✅ STS oracle ready at %s", cfg.Oracle.STSPath)

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		log.Fatalf("Data directory error: %v", err)
	}

	// Ops side-channel (health, stats, pprof)
	if cfg.Ops.Enabled {
		opsServer := ops.NewServer(db, true)
		go func() {
			if err := opsServer.Start(cfg.Ops.Port); err != nil {
				log.Printf("ops server stopped: %v", err)
			}
		}()
	}

	server := api.NewServer(
		c.JobRepo,
		c.PipelineFactory(),
		cfg.Paths.DataDir,
		cfg.Server.MaxUploadBytes,
		cfg.Pipeline.ChunkSize,
	)

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Println("🔄 Shutting down...")
		close(done)
	}()

	if err := server.Start(cfg.Server.Port, cfg.Server.ShutdownTimeout, done); err != nil {
		log.Printf("server stopped: %v", err)
	}
}

// initDatabase initializes the PostgreSQL database connection
func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}
