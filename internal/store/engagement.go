package store

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EngagementRepository struct {
	pool *pgxpool.Pool
}

func NewEngagementRepository(pool *pgxpool.Pool) *EngagementRepository {
	return &EngagementRepository{pool: pool}
}

// InvestorIDs returns every investor holding a vote or a pledge on the
// pitch, de-duplicated across the two tables.
func (r *EngagementRepository) InvestorIDs(ctx context.Context, pitchID string) ([]string, error) {
	query := `
		SELECT investor_id FROM pitchdesk.pitch_votes WHERE pitch_id = $1
		UNION
		SELECT investor_id FROM pitchdesk.pitch_pledges WHERE pitch_id = $1`

	out := make([]string, 0)
	if err := pgxscan.Select(ctx, r.pool, &out, query, pitchID); err != nil {
		return nil, fmt.Errorf("select engaged investors: %w", err)
	}

	return out, nil
}
