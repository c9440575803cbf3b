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

const sectorTableName = "pitchdesk.sectors"

var sectorColumns = utils.StructTagValues(types.Sector{})

type SectorRepository struct {
	pool *pgxpool.Pool
}

func NewSectorRepository(pool *pgxpool.Pool) *SectorRepository {
	return &SectorRepository{pool: pool}
}

func (r *SectorRepository) AllSectors(ctx context.Context) ([]*types.Sector, error) {
	query, args, err := psql().
		Select(sectorColumns...).
		From(sectorTableName).
		Where(sq.Eq{"is_active": true}).
		OrderBy("display_order ASC", "name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate sectors query: %w", err)
	}

	var sectors []*types.Sector
	err = pgxscan.Select(ctx, r.pool, &sectors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sectors: %w", err)
	}

	return sectors, nil
}

func (r *SectorRepository) SectorBySlug(ctx context.Context, slug string) (*types.Sector, error) {
	query, args, err := psql().
		Select(sectorColumns...).
		From(sectorTableName).
		Where(sq.Eq{"slug": slug}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate sector query: %w", err)
	}

	var sector types.Sector
	err = pgxscan.Get(ctx, r.pool, &sector, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch sector: %w", err)
	}

	return &sector, nil
}

// UpsertSector creates or refreshes one sector row, used by the seed
// command.
func (r *SectorRepository) UpsertSector(ctx context.Context, sector *types.Sector) error {
	now := time.Now()
	if sector.ID == "" {
		sector.ID = utils.NanoID()
	}
	sector.CreatedAt = now
	sector.UpdatedAt = now

	sectorMap := utils.StructToMap(sector)

	updateMap := make(map[string]interface{})
	for k, v := range sectorMap {
		if k != "id" && k != "slug" && k != "created_at" {
			updateMap[k] = v
		}
	}

	query, args, err := psql().
		Insert(sectorTableName).
		SetMap(sectorMap).
		Suffix("ON CONFLICT (slug) DO UPDATE SET " + buildUpdateClause(updateMap)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert sector query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert sector: %w", err)
	}

	return nil
}
