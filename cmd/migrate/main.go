package main

import (
	"flag"
	"fmt"

	"ms-checkin/internal/config"
	"ms-checkin/internal/database/migrations"
	"ms-checkin/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration")
	steps := flag.Int("steps", 0, "apply n migrations (negative rolls back)")
	flag.Parse()

	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	runner := migrations.NewRunner(cfg.Database, log)
	defer runner.Close()

	switch {
	case *steps != 0:
		err = runner.Steps(*steps)
	case *down:
		err = runner.Down()
	default:
		err = runner.Up()
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", fmt.Sprintf("✅ Migrations finished for %s", cfg.Database.MigrationsDir))
}
