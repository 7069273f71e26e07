package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"snapquiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Leaderboard keeps scores in a sorted set per quiz, with the full entries in
// a companion hash:
//
//	ZADD  board:{quizID}        {score} {entryID}
//	HSET  board:{quizID}:entries {entryID} {json}
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) Submit(ctx context.Context, entry domain.LeaderboardEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal leaderboard entry: %w", err)
	}
	pipe := l.client.Pipeline()
	pipe.ZAdd(ctx, l.boardKey(entry.QuizID), redis.Z{Score: float64(entry.Score), Member: entry.ID})
	pipe.HSet(ctx, l.entriesKey(entry.QuizID), entry.ID, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("submit leaderboard entry: %w", err)
	}
	return nil
}

func (l *Leaderboard) Top(ctx context.Context, quizID string) ([]domain.LeaderboardEntry, error) {
	ids, err := l.client.ZRevRange(ctx, l.boardKey(quizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	raws, err := l.client.HMGet(ctx, l.entriesKey(quizID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard entries: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(raws))
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var entry domain.LeaderboardEntry
		if err := json.Unmarshal([]byte(str), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *Leaderboard) boardKey(quizID string) string {
	return "board:" + quizID
}

func (l *Leaderboard) entriesKey(quizID string) string {
	return "board:" + quizID + ":entries"
}
