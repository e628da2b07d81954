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

var (
	parcelTableName   = table("aid_parcels")
	deliveryTableName = table("aid_deliveries")
)

var (
	parcelColumns   = utils.StructTagValues(types.AidParcel{})
	deliveryColumns = utils.StructTagValues(types.AidDelivery{})
)

type ParcelRepository struct {
	pool *pgxpool.Pool
}

func NewParcelRepository(pool *pgxpool.Pool) *ParcelRepository {
	return &ParcelRepository{pool: pool}
}

func (r *ParcelRepository) Parcels(ctx context.Context, campID string) ([]*types.AidParcel, error) {
	query, args, err := psql().
		Select(parcelColumns...).
		From(parcelTableName).
		Where(sq.Eq{"camp_id": campID}).
		OrderBy("sequence ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate parcels query: %w", err)
	}

	var parcels = make([]*types.AidParcel, 0)
	err = pgxscan.Select(ctx, r.pool, &parcels, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch parcels for camp %s: %w", campID, err)
	}

	return parcels, nil
}

func (r *ParcelRepository) Parcel(ctx context.Context, parcelID string) (*types.AidParcel, error) {
	query, args, err := psql().
		Select(parcelColumns...).
		From(parcelTableName).
		Where(sq.Eq{"id": parcelID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate parcel query: %w", err)
	}

	var parcel = new(types.AidParcel)
	err = pgxscan.Get(ctx, r.pool, parcel, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrParcelNotFound
		}
		return nil, fmt.Errorf("failed to fetch parcel: %w", err)
	}

	return parcel, nil
}

// CreateParcel appends a parcel to the camp; its display sequence is one past
// the camp's highest. Creates in the same camp are serialised by a
// transaction-scoped advisory lock keyed on the camp.
func (r *ParcelRepository) CreateParcel(ctx context.Context, parcel *types.AidParcel) error {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin parcel transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "aid_parcels/"+parcel.CampID); err != nil {
		return fmt.Errorf("failed to lock parcel sequence: %w", err)
	}

	seqQuery, seqArgs, err := psql().
		Select("COALESCE(MAX(sequence), 0)").
		From(parcelTableName).
		Where(sq.Eq{"camp_id": parcel.CampID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate parcel sequence query: %w", err)
	}

	var current int
	err = tx.QueryRow(ctx, seqQuery, seqArgs...).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read parcel sequence: %w", err)
	}

	parcel.ID = utils.NanoID()
	parcel.Sequence = current + 1
	parcel.CreatedAt = time.Now()
	if parcel.Status == "" {
		parcel.Status = types.ParcelStatusActive
	}

	query, args, err := psql().Insert(parcelTableName).SetMap(utils.StructToMap(parcel)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert parcel query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create parcel: %w", err)
	}

	return utils.ErrorWrapOrNil(tx.Commit(ctx), "failed to commit parcel")
}

type DeliveryRepository struct {
	pool *pgxpool.Pool
}

func NewDeliveryRepository(pool *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

// RecordDelivery marks a parcel as handed to a family. Recording the same
// (family, parcel) pair twice is a no-op and reports created=false.
func (r *DeliveryRepository) RecordDelivery(ctx context.Context, delivery *types.AidDelivery) (bool, error) {

	now := time.Now()
	delivery.ID = utils.NanoID()
	delivery.CreatedAt = now
	if delivery.DeliveredAt.IsZero() {
		delivery.DeliveredAt = now
	}

	query, args, err := psql().
		Insert(deliveryTableName).
		SetMap(utils.StructToMap(delivery)).
		Suffix("ON CONFLICT (family_id, parcel_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate insert delivery query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to record delivery: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *DeliveryRepository) DeliveriesByParcel(ctx context.Context, parcelID string) ([]*types.AidDelivery, error) {
	query, args, err := psql().
		Select(deliveryColumns...).
		From(deliveryTableName).
		Where(sq.Eq{"parcel_id": parcelID}).
		OrderBy("delivered_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate deliveries query: %w", err)
	}

	var deliveries = make([]*types.AidDelivery, 0)
	err = pgxscan.Select(ctx, r.pool, &deliveries, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deliveries for parcel %s: %w", parcelID, err)
	}

	return deliveries, nil
}
