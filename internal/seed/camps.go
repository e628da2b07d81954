package seed

import (
	"context"
	"fmt"
	"time"

	"campaid/internal/utils"
	"campaid/pkg/types"
)

type CampWriter interface {
	UpsertCamp(ctx context.Context, camp *types.Camp) error
}

// Camps is the source of truth for the camps the register serves. IDs are
// fixed so seeding is idempotent; `campaid nanoid` generates new ones.
var Camps = []types.Camp{
	{ID: "q8WcN2vKx7LrT0aHm4YsPe9BjZu3GdFi", Name: "Al-Mawasi North", Location: utils.StringPtr("Khan Younis, block 4")},
	{ID: "Vb3nR6tQp1XyKc8MwE0sLh5JaUz2DgNo", Name: "Al-Mawasi South", Location: utils.StringPtr("Khan Younis, block 9")},
	{ID: "e5FkY9pLs2WqJ7vCx0RnHb4TmAo8ZdGu", Name: "Deir al-Balah Coast"},
}

// SeedCamps upserts every camp in Camps. Camps missing from the list are left
// alone because families reference them.
func SeedCamps(ctx context.Context, repo CampWriter) error {
	now := time.Now()

	for _, camp := range Camps {
		fmt.Printf("  Upserting camp: %s (id: %s)\n", camp.Name, camp.ID)
		camp.CreatedAt = now
		if err := repo.UpsertCamp(ctx, &camp); err != nil {
			return fmt.Errorf("failed to upsert camp %s: %w", camp.ID, err)
		}
	}

	fmt.Printf("\nCamps synced: %d upserted\n", len(Camps))
	return nil
}
