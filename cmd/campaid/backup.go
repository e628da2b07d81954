package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"campaid/internal/backup"
	"campaid/internal/db"
	"campaid/internal/storage"
	"campaid/internal/store"
	"campaid/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var backupCommand = &cli.Command{
	Name:  "backup",
	Usage: "Export or restore the whole remote store",
	Subcommands: []*cli.Command{
		{
			Name:  "export",
			Usage: "Write a backup document to a file, stdout or the object store",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Usage: "file to write, stdout when empty"},
				&cli.BoolFlag{Name: "archive", Usage: "upload to the configured object store instead"},
			},
			Action: exportBackup,
		},
		{
			Name:  "restore",
			Usage: "Replace every table with the contents of a backup document",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "file", Usage: "backup file to restore"},
				&cli.StringFlag{Name: "key", Usage: "object store key of an archived backup"},
				&cli.BoolFlag{Name: "confirm", Usage: "required, existing rows are deleted"},
			},
			Action: restoreBackup,
		},
	},
}

func newBackupService(ctx context.Context, cfg *types.Config, withObjects bool, logger *logrus.Logger) (*backup.Service, func(), error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var objects storage.ObjectStore
	if withObjects {
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		objects = backupObjectStore(cfg, awsConfig, logger)
	}

	return backup.NewService(store.NewBackupRepository(pool), objects, logger), pool.Close, nil
}

func exportBackup(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()

	svc, closeFn, err := newBackupService(ctx, cfg, c.Bool("archive"), logger)
	if err != nil {
		return err
	}
	defer closeFn()

	if c.Bool("archive") {
		key, err := svc.Archive(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("backup archived as %s\n", key)
		return nil
	}

	b, err := svc.Export(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out := c.String("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	return backup.Encode(w, b)
}

func restoreBackup(c *cli.Context) error {
	if !c.Bool("confirm") {
		return fmt.Errorf("restore deletes every existing row, pass --confirm to continue")
	}

	file, key := c.String("file"), c.String("key")
	if (file == "") == (key == "") {
		return fmt.Errorf("pass exactly one of --file or --key")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()

	svc, closeFn, err := newBackupService(ctx, cfg, key != "", logger)
	if err != nil {
		return err
	}
	defer closeFn()

	if key != "" {
		return svc.RestoreArchive(ctx, key)
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	b, err := backup.Decode(f)
	if err != nil {
		return err
	}

	return svc.Restore(ctx, b)
}
