package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "campaid",
		Usage: "Offline-first family register for displacement camps",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			seedCommand,
			draftsCommand,
			importCommand,
			backupCommand,
			nanoidCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
