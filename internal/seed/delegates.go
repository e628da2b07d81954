package seed

import (
	"context"
	"fmt"
	"time"

	"campaid/internal/utils"
	"campaid/pkg/types"
)

type DelegateWriter interface {
	UpsertDelegate(ctx context.Context, delegate *types.Delegate) error
	DeleteDelegatesExcept(ctx context.Context, keep []string) error
}

// Delegates are the canonical delegate names bulk imports are matched
// against. A nil CampID makes the delegate available to every camp.
var Delegates = []types.Delegate{
	{ID: "Lm7Qx2Ws9KfB4nTz0YcRg6VhJp1EaUdo", CampID: utils.StringPtr("q8WcN2vKx7LrT0aHm4YsPe9BjZu3GdFi"), Name: "Ahmed Khalil", Phone: utils.StringPtr("0599123456")},
	{ID: "Hs4Ty8Nc1PzW6qLe3XvBk0RmGa9JdFuo", CampID: utils.StringPtr("q8WcN2vKx7LrT0aHm4YsPe9BjZu3GdFi"), Name: "Sara Naser"},
	{ID: "Pz0Xc5Vb8Nm2Lk7Jh4Gf1Ds6Aq9Wr3Ey", CampID: utils.StringPtr("Vb3nR6tQp1XyKc8MwE0sLh5JaUz2DgNo"), Name: "Mahmoud Odeh", Phone: utils.StringPtr("0567004321")},
	{ID: "Kd2Fg6Hj0Lq4Wz8Xc1Vb5Nm9Ap3Sy7Er", Name: "محمد أبو سالم"},
}

// SeedDelegates syncs the delegates table with Delegates: listed delegates
// are inserted or updated and every other delegate is deleted.
func SeedDelegates(ctx context.Context, repo DelegateWriter) error {
	now := time.Now()

	keep := make([]string, 0, len(Delegates))
	for _, d := range Delegates {
		fmt.Printf("  Upserting delegate: %s (id: %s)\n", d.Name, d.ID)
		d.CreatedAt = now
		if err := repo.UpsertDelegate(ctx, &d); err != nil {
			return fmt.Errorf("failed to upsert delegate %s: %w", d.ID, err)
		}
		keep = append(keep, d.ID)
	}

	if err := repo.DeleteDelegatesExcept(ctx, keep); err != nil {
		return fmt.Errorf("failed to delete stale delegates: %w", err)
	}

	fmt.Printf("\nDelegates synced: %d upserted\n", len(keep))
	return nil
}
