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

var notificationTableName = table("notifications")

var notificationColumns = utils.StructTagValues(types.Notification{})

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, campID, title, body string) error {

	n := &types.Notification{
		ID:        utils.NanoID(),
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}

	values := utils.StructToMap(n)
	values["camp_id"] = nullable(campID)

	query, args, err := psql().Insert(notificationTableName).SetMap(values).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert notification query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create notification")
}

// LatestNotifications returns the newest notifications for campID, including
// ones not tied to a camp.
func (r *NotificationRepository) LatestNotifications(ctx context.Context, campID string, limit uint64) ([]*types.Notification, error) {
	if limit == 0 {
		limit = 50
	}

	query, args, err := psql().
		Select(notificationColumns...).
		From(notificationTableName).
		Where(sq.Or{sq.Eq{"camp_id": campID}, sq.Eq{"camp_id": nil}}).
		OrderBy("created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate notifications query: %w", err)
	}

	var notifications = make([]*types.Notification, 0)
	err = pgxscan.Select(ctx, r.pool, &notifications, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := psql().
		Update(notificationTableName).
		Set("is_read", true).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate mark read query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to mark notifications read")
}
