package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"campaid/internal/db"
	"campaid/internal/importer"
	"campaid/internal/store"
	"campaid/pkg/types"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var importCommand = &cli.Command{
	Name:  "import",
	Usage: "Import families from a CSV or XLSX export",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "camp", Usage: "camp id the families belong to", Required: true},
		&cli.StringFlag{Name: "file", Usage: "path to the .csv or .xlsx file", Required: true},
	},
	Action: runImport,
}

func runImport(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	path := c.String("file")
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := importer.ReadRows(path, f)
	if err != nil {
		return err
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	reconciler := importer.NewReconciler(store.NewRegistry(pool), store.NewDelegateRepository(pool), importer.Config{
		Threshold: cfg.DelegateMatchThreshold,
		Notifier:  store.NewNotificationRepository(pool),
		Logger:    logger,
	})

	report, err := reconciler.Import(ctx, c.String("camp"), rows)

	var unresolved *types.UnresolvedDelegatesError
	if errors.As(err, &unresolved) {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Family", "Delegate"})
		for _, d := range unresolved.Delegates {
			table.Append([]string{d.FamilyNumber, d.DelegateText})
		}
		table.Render()
		return fmt.Errorf("import aborted, %d delegate references could not be matched", len(unresolved.Delegates))
	}
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Family", "Members", "Result", "Reason"})
	for _, r := range report.Results {
		result := "created"
		if !r.Success {
			result = "failed"
		}
		table.Append([]string{r.FamilyNumber, strconv.Itoa(r.Members), result, r.Reason})
	}
	table.Render()

	fmt.Printf("%d rows, %d families created, %d failed\n", report.Rows, report.SuccessCount, report.FailCount)
	return nil
}
