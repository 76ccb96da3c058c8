package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/Skotchmaster/shop_api/internal/migrate"
	"github.com/Skotchmaster/shop_api/pkg/logging"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("missing required env DATABASE_URL")
	}

	logger := logging.New(os.Getenv("LOG_LEVEL")).With("service", "migrate")
	slog.SetDefault(logger)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), logger), 2*time.Minute)
	defer cancel()

	applied, err := migrate.Run(ctx, db)
	if err != nil {
		logger.Error("migrations_failed", "applied", applied, "error", err)
		os.Exit(1)
	}
	logger.Info("migrations_done", "applied", len(applied))
}
