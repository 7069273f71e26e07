package postgres

import (
	"context"
	"fmt"

	"snapquiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Leaderboard persists submitted scores in the scores table.
type Leaderboard struct {
	pool *pgxpool.Pool
}

func NewLeaderboard(pool *pgxpool.Pool) *Leaderboard {
	return &Leaderboard{pool: pool}
}

func (l *Leaderboard) Submit(ctx context.Context, entry domain.LeaderboardEntry) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO scores (id, quiz_id, email, score, possible, elapsed_sec, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.QuizID, entry.Email, entry.Score, entry.Possible, entry.ElapsedSec, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (l *Leaderboard) Top(ctx context.Context, quizID string) ([]domain.LeaderboardEntry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, quiz_id, email, score, possible, elapsed_sec, created_at
		 FROM scores WHERE quiz_id=$1 ORDER BY score DESC, created_at ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.QuizID, &e.Email, &e.Score, &e.Possible, &e.ElapsedSec, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
