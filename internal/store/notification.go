package store

import (
	"context"
	"fmt"

	"pitchdesk/internal/utils"
	"pitchdesk/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationTableName = "pitchdesk.notifications"

var notificationColumns = utils.StructTagValues(types.Notification{})

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Notify queues one notification row; delivery (email, in-app) is drained
// by a separate worker.
func (r *NotificationRepository) Notify(ctx context.Context, userID, title, message, actionRoute string) error {
	id := utils.NanoID()

	query, args, err := psql().
		Insert(notificationTableName).
		Columns("id", "user_id", "title", "message", "action_route").
		Values(id, userID, title, message, nullable(actionRoute)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build notification insert: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (r *NotificationRepository) UnreadByUser(ctx context.Context, userID string) ([]*types.Notification, error) {
	query, args, err := psql().
		Select(notificationColumns...).
		From(notificationTableName).
		Where(sq.Eq{"user_id": userID, "read_at": nil}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unread query: %w", err)
	}

	out := make([]*types.Notification, 0)
	if err := pgxscan.Select(ctx, r.pool, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select unread notifications: %w", err)
	}

	return out, nil
}
