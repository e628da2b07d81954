package store

import (
	"campaid/internal/utils"
	"campaid/pkg/types"
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

var individualTableName = table("individuals")

var individualColumns = utils.StructTagValues(types.Individual{})

type IndividualRepository struct {
	pool *pgxpool.Pool
}

func NewIndividualRepository(pool *pgxpool.Pool) *IndividualRepository {
	return &IndividualRepository{pool: pool}
}

// ActiveNIDHolder looks up the member of a non-departed family holding nid.
func (r *IndividualRepository) ActiveNIDHolder(ctx context.Context, nid string) (*types.NIDHolder, error) {
	query, args, err := psql().
		Select("i.id AS individual_id", "i.family_id", "f.family_number", "f.camp_id", "i.name").
		From(individualTableName + " i").
		Join(familyTableName + " f ON f.id = i.family_id").
		Where(sq.Eq{"i.nid": nid, "f.is_departed": false}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nid holder query: %w", err)
	}

	var holder types.NIDHolder
	err = pgxscan.Get(ctx, r.pool, &holder, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrIndividualNotFound
		}
		return nil, fmt.Errorf("failed to fetch nid holder: %w", err)
	}

	return &holder, nil
}

func (r *IndividualRepository) IndividualsByFamily(ctx context.Context, familyID string) ([]*types.Individual, error) {
	return r.IndividualsByFamilies(ctx, []string{familyID})
}

func (r *IndividualRepository) IndividualsByFamilies(ctx context.Context, familyIDs []string) ([]*types.Individual, error) {
	if len(familyIDs) == 0 {
		return []*types.Individual{}, nil
	}

	query, args, err := psql().
		Select(individualColumns...).
		From(individualTableName).
		Where(sq.Eq{"family_id": familyIDs}).
		OrderBy("created_at asc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate individuals by families query: %w", err)
	}

	var individuals []*types.Individual
	err = pgxscan.Select(ctx, r.pool, &individuals, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch individuals by families: %w", err)
	}

	return individuals, nil
}

func (r *IndividualRepository) CreateIndividual(ctx context.Context, individual *types.Individual) error {
	now := time.Now()
	individual.ID = utils.NanoID()
	individual.CreatedAt = now
	individual.UpdatedAt = now

	query, args, err := psql().
		Insert(individualTableName).
		SetMap(utils.StructToMap(individual)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create individual query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create individual: %w", err)
	}

	return nil
}
