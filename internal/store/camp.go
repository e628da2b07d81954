package store

import (
	"campaid/internal/utils"
	"campaid/pkg/types"
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	campTableName     = table("camps")
	delegateTableName = table("delegates")
)

var (
	campColumns     = utils.StructTagValues(types.Camp{})
	delegateColumns = utils.StructTagValues(types.Delegate{})
)

type CampRepository struct {
	pool *pgxpool.Pool
}

func NewCampRepository(pool *pgxpool.Pool) *CampRepository {
	return &CampRepository{pool: pool}
}

func (r *CampRepository) Camps(ctx context.Context) ([]*types.Camp, error) {
	query, args, err := psql().
		Select(campColumns...).
		From(campTableName).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate camps query: %w", err)
	}

	var camps []*types.Camp
	err = pgxscan.Select(ctx, r.pool, &camps, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch camps: %w", err)
	}

	return camps, nil
}

func (r *CampRepository) Camp(ctx context.Context, id string) (*types.Camp, error) {
	query, args, err := psql().
		Select(campColumns...).
		From(campTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate camp query: %w", err)
	}

	var camp types.Camp
	err = pgxscan.Get(ctx, r.pool, &camp, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrCampNotFound
		}
		return nil, fmt.Errorf("failed to fetch camp: %w", err)
	}

	return &camp, nil
}

func (r *CampRepository) UpsertCamp(ctx context.Context, camp *types.Camp) error {
	return upsert(ctx, r.pool, campTableName, utils.StructToMap(camp))
}

type DelegateRepository struct {
	pool *pgxpool.Pool
}

func NewDelegateRepository(pool *pgxpool.Pool) *DelegateRepository {
	return &DelegateRepository{pool: pool}
}

// Delegates returns the delegates serving campID plus the delegates not tied
// to any camp.
func (r *DelegateRepository) Delegates(ctx context.Context, campID string) ([]*types.Delegate, error) {
	query, args, err := psql().
		Select(delegateColumns...).
		From(delegateTableName).
		Where(sq.Or{sq.Eq{"camp_id": campID}, sq.Eq{"camp_id": nil}}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate delegates query: %w", err)
	}

	var delegates []*types.Delegate
	err = pgxscan.Select(ctx, r.pool, &delegates, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch delegates: %w", err)
	}

	return delegates, nil
}

// DelegateNames returns the canonical delegate names available to campID.
func (r *DelegateRepository) DelegateNames(ctx context.Context, campID string) ([]string, error) {
	delegates, err := r.Delegates(ctx, campID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(delegates))
	for _, d := range delegates {
		names = append(names, d.Name)
	}
	return names, nil
}

func (r *DelegateRepository) UpsertDelegate(ctx context.Context, delegate *types.Delegate) error {
	return upsert(ctx, r.pool, delegateTableName, utils.StructToMap(delegate))
}

// DeleteDelegatesExcept removes every delegate whose id is not in keep.
func (r *DelegateRepository) DeleteDelegatesExcept(ctx context.Context, keep []string) error {
	query, args, err := psql().
		Delete(delegateTableName).
		Where(sq.NotEq{"id": keep}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete delegates query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete stale delegates")
}

// upsert inserts values and on id conflict overwrites every column except
// id and created_at.
func upsert(ctx context.Context, pool *pgxpool.Pool, tableName string, values map[string]any) error {
	updateMap := make(map[string]any)
	for k, v := range values {
		if k != "id" && k != "created_at" {
			updateMap[k] = v
		}
	}

	query, args, err := psql().
		Insert(tableName).
		SetMap(values).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + buildUpdateClause(updateMap)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert query for %s: %w", tableName, err)
	}

	_, err = pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", tableName, err)
	}

	return nil
}

// buildUpdateClause creates the SET clause for ON CONFLICT DO UPDATE
// e.g., "name = EXCLUDED.name, phone = EXCLUDED.phone, ..."
func buildUpdateClause(fields map[string]any) string {
	var clause string
	first := true
	for field := range fields {
		if !first {
			clause += ", "
		}
		clause += fmt.Sprintf("%s = EXCLUDED.%s", field, field)
		first = false
	}
	return clause
}
