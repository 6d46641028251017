package main

import (
	"os"

	"github.com/oggyb/devconnect/internal/config"
	"github.com/oggyb/devconnect/internal/db"
	"github.com/oggyb/devconnect/internal/logger"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)

	database, err := db.NewDB(cfg)
	if err != nil {
		logger.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database); err != nil {
		logger.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	logger.Info("seeding completed", "password", db.SeedPassword)
}
