package main

import (
	"context"
	"flag"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"lens/internal/config"
	"lens/internal/database"
	"lens/internal/logger"
	"lens/internal/migrations"
)

func main() {
	command := flag.String("command", "up", "migration command (up, down, status)")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	log := logger.New()

	dsn := config.GetEnvOrDefault("DATABASE_URL", "")
	if dsn == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.New(ctx, dsn)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	switch *command {
	case "up":
		err = migrations.Up(ctx, db.Pool())
	case "down":
		err = migrations.Down(ctx, db.Pool())
	case "status":
		err = migrations.Status(ctx, db.Pool())
	default:
		log.Error("Unknown command", "command", *command)
		db.Close()
		os.Exit(2)
	}
	if err != nil {
		log.Error("Migration failed", "command", *command, "error", err)
		db.Close()
		os.Exit(1)
	}

	log.Info("Migration finished", "command", *command)
}
