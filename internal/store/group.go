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

const groupTableName = "pitchdesk.groups"

var groupColumns = utils.StructTagValues(types.Group{})

type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

func (r *GroupRepository) Group(ctx context.Context, groupID string) (*types.Group, error) {
	query, args, err := psql().
		Select(groupColumns...).
		From(groupTableName).
		Where(sq.Eq{"id": groupID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate group query: %w", err)
	}

	var group = new(types.Group)
	err = pgxscan.Get(ctx, r.pool, group, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrGroupNotFound
	}

	return group, nil
}

func (r *GroupRepository) AllGroups(ctx context.Context) ([]*types.Group, error) {
	query, args, err := psql().
		Select(groupColumns...).
		From(groupTableName).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate groups query: %w", err)
	}

	var groups = make([]*types.Group, 0)
	err = pgxscan.Select(ctx, r.pool, &groups, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to fetch groups")
	}

	return groups, nil
}
