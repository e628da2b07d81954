package main

import (
	"context"
	"fmt"

	"campaid/internal/db"
	"campaid/internal/seed"
	"campaid/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Create the database schema if it does not exist",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		logrus.Info("Schema is up to date")
		return nil
	},
}

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with camps and delegates",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		logrus.Info("Seeding camps...")
		if err := seed.SeedCamps(ctx, store.NewCampRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed camps: %w", err)
		}

		logrus.Info("Seeding delegates...")
		if err := seed.SeedDelegates(ctx, store.NewDelegateRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed delegates: %w", err)
		}

		logrus.Info("Seed data synced successfully")
		return nil
	},
}
