package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/config"
	"github.com/garyjia/referral-workflow/internal/container"
	"github.com/garyjia/referral-workflow/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	fixturesPath := flag.String("fixtures", "configs/seed.yaml", "path to the YAML fixtures file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stdout",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fixtures, err := LoadFixtures(*fixturesPath)
	if err != nil {
		logger.Fatal("Failed to load fixtures", zap.Error(err))
	}

	// Seeding never publishes to Redis
	containerCfg := cfg.ToContainerConfig()
	containerCfg.Events.RedisURL = ""

	c, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer c.Close()

	repos := c.Repositories()
	seeder := &Seeder{
		Jobs:      repos.Job,
		Employees: repos.Employee,
		Referrals: repos.Referral,
		Limits:    c.Services().Limit,
		TxManager: c.DB(),
		Logger:    logger,
	}

	summary, err := seeder.Run(ctx, fixtures)
	if err != nil {
		logger.Error("Seeding failed", zap.Error(err))
		c.Close()
		os.Exit(1)
	}

	logger.Info("Seeding complete",
		zap.String("database", cfg.Database.Path),
		zap.Int("jobs", summary.Jobs),
		zap.Int("employees", summary.Employees),
		zap.Int("limits", summary.Limits),
		zap.Int("referrals", summary.Referrals),
		zap.Int("skipped", summary.Skipped))
}
