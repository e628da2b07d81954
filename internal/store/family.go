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

var familyTableName = table("families")

var familyColumns = utils.StructTagValues(types.Family{})

type FamilyRepository struct {
	pool *pgxpool.Pool
}

func NewFamilyRepository(pool *pgxpool.Pool) *FamilyRepository {
	return &FamilyRepository{pool: pool}
}

func (r *FamilyRepository) Family(ctx context.Context, familyID string) (*types.Family, error) {
	query, args, err := psql().Select(familyColumns...).From(familyTableName).
		Where(sq.Eq{"id": familyID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate family query: %w", err)
	}

	var family = new(types.Family)
	err = pgxscan.Get(ctx, r.pool, family, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrFamilyNotFound
		}
		return nil, fmt.Errorf("failed to fetch family: %w", err)
	}

	return family, nil
}

// ActiveFamilyByNumber returns the non-departed family of the camp holding
// familyNumber, or types.ErrFamilyNotFound.
func (r *FamilyRepository) ActiveFamilyByNumber(ctx context.Context, campID, familyNumber string) (*types.Family, error) {
	query, args, err := psql().Select(familyColumns...).From(familyTableName).
		Where(sq.Eq{"camp_id": campID, "family_number": familyNumber, "is_departed": false}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate active family query: %w", err)
	}

	var family = new(types.Family)
	err = pgxscan.Get(ctx, r.pool, family, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrFamilyNotFound
		}
		return nil, fmt.Errorf("failed to fetch active family %s: %w", familyNumber, err)
	}

	return family, nil
}

func (r *FamilyRepository) FamiliesByCamp(ctx context.Context, campID string, includeDeparted bool) ([]*types.Family, error) {
	where := sq.Eq{"camp_id": campID}
	if !includeDeparted {
		where["is_departed"] = false
	}

	query, args, err := psql().Select(familyColumns...).From(familyTableName).
		Where(where).
		OrderBy("created_at asc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate families by camp query: %w", err)
	}

	var families = make([]*types.Family, 0)
	err = pgxscan.Select(ctx, r.pool, &families, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch families for camp %s: %w", campID, err)
	}

	return families, nil
}

// CreateFamily inserts the family and assigns its remote identifier.
func (r *FamilyRepository) CreateFamily(ctx context.Context, family *types.Family) error {

	now := time.Now()
	family.ID = utils.NanoID()
	family.CreatedAt = now
	family.UpdatedAt = now

	query, args, err := psql().Insert(familyTableName).SetMap(utils.StructToMap(family)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert family query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create family")
}

func (r *FamilyRepository) SetDeparted(ctx context.Context, familyID string, departed bool) error {

	query, args, err := psql().Update(familyTableName).
		Set("is_departed", departed).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": familyID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate departed update for family %s: %w", familyID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update family %s: %w", familyID, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrFamilyNotFound
	}

	return nil
}

// DeleteFamily removes a family; individuals and deliveries cascade.
func (r *FamilyRepository) DeleteFamily(ctx context.Context, familyID string) error {

	query, args, err := psql().Delete(familyTableName).Where(sq.Eq{"id": familyID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete family query for family %s: %w", familyID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)

	return utils.ErrorWrapOrNil(err, "failed to delete family")
}
