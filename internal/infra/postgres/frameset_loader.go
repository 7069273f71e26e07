package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"snapquiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// FrameSetLoader loads bundle JSONB from Postgres.
type FrameSetLoader struct {
	pool *pgxpool.Pool
}

func NewFrameSetLoader(pool *pgxpool.Pool) *FrameSetLoader {
	return &FrameSetLoader{pool: pool}
}

func (l *FrameSetLoader) LoadFrameSet(ctx context.Context, quizID string) (domain.FrameSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM bundles WHERE id=$1`, quizID).Scan(&raw)
	if err != nil {
		return domain.FrameSet{}, fmt.Errorf("load bundle: %w", err)
	}
	var set domain.FrameSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.FrameSet{}, fmt.Errorf("unmarshal bundle: %w", err)
	}
	return set, nil
}

// SaveFrameSet upserts a loaded bundle so future instances can serve it.
func (l *FrameSetLoader) SaveFrameSet(ctx context.Context, set domain.FrameSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO bundles (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, set.ID, raw)
	if err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	return nil
}
