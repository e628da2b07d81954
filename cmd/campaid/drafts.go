package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"campaid/internal/db"
	"campaid/internal/offline"
	"campaid/internal/store"
	"campaid/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var draftsCommand = &cli.Command{
	Name:  "drafts",
	Usage: "Inspect and upload the local draft queue",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List queued drafts, errored drafts first",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "camp", Usage: "only drafts of this camp"},
			},
			Action: listDrafts,
		},
		{
			Name:      "show",
			Usage:     "Print one draft in full",
			ArgsUsage: "<draft-id>",
			Action:    showDraft,
		},
		{
			Name:      "delete",
			Usage:     "Discard one draft",
			ArgsUsage: "<draft-id>",
			Action:    deleteDraft,
		},
		{
			Name:  "upload",
			Usage: "Upload queued drafts to the remote store",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "camp", Usage: "only drafts of this camp"},
			},
			Action: uploadDrafts,
		},
	},
}

func listDrafts(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	draftStore, err := openDrafts(cfg, logger)
	if err != nil {
		return err
	}
	defer draftStore.Close()

	ctx := context.Background()

	camps := []string{c.String("camp")}
	if camps[0] == "" {
		camps, err = draftStore.Camps(ctx)
		if err != nil {
			return err
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Camp", "Family", "Members", "Status", "Error", "Created"})

	for _, campID := range camps {
		list, err := draftStore.ListPrioritized(ctx, campID)
		if err != nil {
			return err
		}
		for _, d := range list {
			table.Append(draftRow(d))
		}
	}

	table.Render()
	return nil
}

func draftRow(d *types.Draft) []string {
	number, members := "", 0
	if d.Bundle != nil {
		members = len(d.Bundle.Members)
		if d.Bundle.Family != nil {
			number = d.Bundle.Family.FamilyNumber
		}
	}

	return []string{
		strconv.FormatUint(d.ID, 10),
		d.CampID,
		number,
		strconv.Itoa(members),
		string(d.Status),
		d.Error,
		d.CreatedAt.Format("2006-01-02 15:04"),
	}
}

func draftIDArg(c *cli.Context) (uint64, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one draft id")
	}
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid draft id %q", c.Args().First())
	}
	return id, nil
}

func showDraft(c *cli.Context) error {
	id, err := draftIDArg(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	draftStore, err := openDrafts(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer draftStore.Close()

	draft, err := draftStore.Draft(context.Background(), id)
	if err != nil {
		return err
	}

	pp.Println(draft)
	return nil
}

func deleteDraft(c *cli.Context) error {
	id, err := draftIDArg(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	draftStore, err := openDrafts(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer draftStore.Close()

	if err := draftStore.Delete(context.Background(), id); err != nil {
		return err
	}

	fmt.Printf("draft %d deleted\n", id)
	return nil
}

func uploadDrafts(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	draftStore, err := openDrafts(cfg, logger)
	if err != nil {
		return err
	}
	defer draftStore.Close()

	registry := store.NewRegistry(pool)
	monitor := newMonitor(cfg, registry, logger)
	if !monitor.Check(ctx) {
		return types.ErrNoConnectivity
	}

	uploader := offline.NewUploader(draftStore, registry, monitor, logger)

	camps := []string{c.String("camp")}
	if camps[0] == "" {
		camps, err = draftStore.Camps(ctx)
		if err != nil {
			return err
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Draft", "Family", "Family ID", "Error"})

	var ok, failed int
	for _, campID := range camps {
		result, err := uploader.UploadAll(ctx, campID)
		if err != nil {
			return err
		}
		ok += result.SuccessCount
		failed += result.FailCount
		for _, o := range result.Outcomes {
			table.Append([]string{strconv.FormatUint(o.DraftID, 10), o.FamilyNumber, o.FamilyID, o.Error})
		}
	}

	table.Render()
	fmt.Printf("uploaded %d, failed %d\n", ok, failed)
	return nil
}
