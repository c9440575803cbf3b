package store

import (
	"context"
	"fmt"
	"time"

	"pitchdesk/internal/utils"
	"pitchdesk/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const activityTableName = "pitchdesk.activity_entries"

var activityColumns = utils.StructTagValues(types.ActivityEntry{})

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// LogActivity appends one entry to the activity log.
func (r *ActivityRepository) LogActivity(ctx context.Context, entry *types.ActivityEntry) error {
	entry.ID = utils.NanoID()
	entry.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(activityTableName).
		SetMap(utils.StructToMap(entry)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert activity query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to log activity")
}

// EntriesByTarget returns activity entries for a record, newest first.
func (r *ActivityRepository) EntriesByTarget(ctx context.Context, targetID string, limit uint64) ([]*types.ActivityEntry, error) {
	query, args, err := psql().
		Select(activityColumns...).
		From(activityTableName).
		Where(sq.Eq{"target_id": targetID}).
		OrderBy("created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate activity query: %w", err)
	}

	var entries []*types.ActivityEntry
	err = pgxscan.Select(ctx, r.pool, &entries, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to fetch activity entries")
	}

	return entries, nil
}
