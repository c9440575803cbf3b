package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pitchdesk/internal/utils"
	"pitchdesk/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/k0kubun/pp"
)

const pitchTableName = "pitchdesk.pitches"

var pitchColumns = utils.StructTagValues(types.Pitch{})

type PitchRepository struct {
	pool          *pgxpool.Pool
	watchInterval time.Duration
}

func NewPitchRepository(pool *pgxpool.Pool, watchInterval time.Duration) *PitchRepository {
	if watchInterval <= 0 {
		watchInterval = 5 * time.Second
	}
	return &PitchRepository{pool: pool, watchInterval: watchInterval}
}

func (r *PitchRepository) Pitch(ctx context.Context, pitchID string) (*types.Pitch, error) {

	query, args, err := psql().Select(pitchColumns...).From(pitchTableName).
		Where(sq.Eq{"id": pitchID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pitch query: %w", err)
	}

	var pitch = new(types.Pitch)
	err = pgxscan.Get(ctx, r.pool, pitch, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrPitchNotFound
	}

	return pitch, nil
}

func (r *PitchRepository) PitchesByIssuer(ctx context.Context, issuerID string) ([]*types.Pitch, error) {

	query, args, err := psql().Select(pitchColumns...).From(pitchTableName).
		Where(sq.Eq{"issuer_id": issuerID}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate issuer pitches query: %w", err)
	}

	var pitches = make([]*types.Pitch, 0)
	err = pgxscan.Select(ctx, r.pool, &pitches, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to fetch issuer pitches")
	}

	return pitches, nil
}

func (r *PitchRepository) PitchesByStatus(ctx context.Context, status types.PitchStatus) ([]*types.Pitch, error) {

	query, args, err := psql().Select(pitchColumns...).From(pitchTableName).
		Where(sq.Eq{"status": status}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate status pitches query: %w", err)
	}

	var pitches = make([]*types.Pitch, 0)
	err = pgxscan.Select(ctx, r.pool, &pitches, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to fetch pitches by status")
	}

	return pitches, nil
}

// AllocateID hands out a record id before the row exists, so the upload
// pipeline can address storage keys for a first save.
func (r *PitchRepository) AllocateID() string {
	return utils.NanoID()
}

func (r *PitchRepository) CreatePitch(ctx context.Context, pitch *types.Pitch) error {

	now := time.Now()
	if pitch.ID == "" {
		pitch.ID = utils.NanoID()
	}
	pitch.CreatedAt = now
	pitch.UpdatedAt = now

	pitchMap := utils.StructToMap(pitch)

	query, args, err := psql().Insert(pitchTableName).SetMap(pitchMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert pitch query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create pitch")

}

func (r *PitchRepository) UpdatePitch(ctx context.Context, pitchID string, pitch *types.Pitch) error {

	now := time.Now()
	pitch.ID = pitchID
	pitch.UpdatedAt = now

	pitchMap := utils.StructToMap(pitch)
	delete(pitchMap, "created_at")

	pp.Print(pitchMap)

	query, args, err := psql().Update(pitchTableName).SetMap(pitchMap).Where(sq.Eq{"id": pitchID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update pitch query for pitch %s: %w", pitchID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)

	return utils.ErrorWrapOrNil(err, "failed to update pitch")

}

func (r *PitchRepository) DeletePitch(ctx context.Context, pitchID string) error {

	query, args, err := psql().Delete(pitchTableName).Where(sq.Eq{"id": pitchID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete pitch query for pitch %s: %w", pitchID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)

	return utils.ErrorWrapOrNil(err, "failed to delete pitch")

}

// Watch polls the record and emits a fresh copy whenever updated_at moves.
// The feed serves draft records only and shuts down once the record leaves
// draft status or is deleted. The returned stop func detaches the feed.
func (r *PitchRepository) Watch(ctx context.Context, pitchID string) (<-chan *types.Pitch, func()) {
	out := make(chan *types.Pitch)
	watchCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)

		ticker := time.NewTicker(r.watchInterval)
		defer ticker.Stop()

		var lastSeen time.Time
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
			}

			pitch, err := r.Pitch(watchCtx, pitchID)
			if err != nil {
				if errors.Is(err, types.ErrPitchNotFound) {
					return
				}
				continue
			}
			if pitch.Status != types.PitchStatusDraft {
				return
			}
			if !pitch.UpdatedAt.After(lastSeen) {
				continue
			}
			lastSeen = pitch.UpdatedAt

			select {
			case out <- pitch:
			case <-watchCtx.Done():
				return
			}
		}
	}()

	return out, cancel
}
