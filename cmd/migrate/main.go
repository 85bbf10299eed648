// Command migrate applies or inspects the database schema.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"bitwash/adapters/postgres/migrations"
)

func main() {
	var status = flag.Bool("status", false, "show migration status instead of applying")
	flag.Parse()

	godotenv.Load()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db.DB)
	ctx := context.Background()

	if *status {
		if err := migrator.Status(ctx); err != nil {
			log.Fatalf("status failed: %v", err)
		}
		return
	}

	if err := migrator.Up(ctx); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Println("Migrations applied")
}
