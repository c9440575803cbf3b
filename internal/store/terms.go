package store

import (
	"context"
	"fmt"

	"pitchdesk/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const termsTableName = "pitchdesk.terms_acceptances"

type TermsRepository struct {
	pool *pgxpool.Pool
}

func NewTermsRepository(pool *pgxpool.Pool) *TermsRepository {
	return &TermsRepository{pool: pool}
}

// RecordAcceptance appends one terms-acceptance audit row. The collection
// is append-only; a re-publish writes a fresh row rather than touching an
// old one.
func (r *TermsRepository) RecordAcceptance(ctx context.Context, issuerID, pitchID string) error {
	id, err := gonanoid.New(21)
	if err != nil {
		return fmt.Errorf("generate id: %w", err)
	}

	query, args, err := psql().
		Insert(termsTableName).
		Columns("id", "issuer_id", "pitch_id").
		Values(id, issuerID, pitchID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build terms insert: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert terms acceptance: %w", err)
	}

	return nil
}

func (r *TermsRepository) AcceptancesByPitch(ctx context.Context, pitchID string) ([]*types.TermsAcceptance, error) {
	query, args, err := psql().
		Select("id", "issuer_id", "pitch_id", "accepted_at").
		From(termsTableName).
		Where(sq.Eq{"pitch_id": pitchID}).
		OrderBy("accepted_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build terms query: %w", err)
	}

	out := make([]*types.TermsAcceptance, 0)
	if err := pgxscan.Select(ctx, r.pool, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select terms acceptances: %w", err)
	}

	return out, nil
}
