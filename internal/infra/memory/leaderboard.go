package memory

import (
	"context"
	"sort"
	"sync"

	"snapquiz-service/internal/domain"
)

// Leaderboard is an in-memory append-only score store.
type Leaderboard struct {
	mu      sync.RWMutex
	entries map[string][]domain.LeaderboardEntry
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{entries: make(map[string][]domain.LeaderboardEntry)}
}

func (l *Leaderboard) Submit(_ context.Context, entry domain.LeaderboardEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[entry.QuizID] = append(l.entries[entry.QuizID], entry)
	return nil
}

func (l *Leaderboard) Top(_ context.Context, quizID string) ([]domain.LeaderboardEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.LeaderboardEntry, len(l.entries[quizID]))
	copy(out, l.entries[quizID])
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		// Tie-break by who got there first.
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
