package main

import (
	"context"
	"fmt"
	"time"

	"campaid/internal/drafts"
	"campaid/internal/offline"
	"campaid/internal/store"
	"campaid/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// bulk imports and draft uploads write one family at a time inside the request
const defaultWriteTimeoutSec = 300

func loadConfig() (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = defaultWriteTimeoutSec
	}

	return c, nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}

func newLogger(cfg *types.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.Environment == "development" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func openDrafts(cfg *types.Config, logger *logrus.Logger) (*drafts.Store, error) {
	return drafts.Open(drafts.Config{
		Path:       cfg.DraftStorePath,
		SyncWrites: true,
		Logger:     logger,
	})
}

func newMonitor(cfg *types.Config, registry *store.Registry, logger *logrus.Logger) *offline.Monitor {
	return offline.NewMonitor(registry, offline.MonitorConfig{
		Interval: time.Duration(cfg.ConnectivityIntervalSec) * time.Second,
		Timeout:  time.Duration(cfg.ConnectivityTimeoutSec) * time.Second,
	}, logger)
}
