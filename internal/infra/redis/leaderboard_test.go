package redis

import (
	"context"
	"testing"
	"time"

	"snapquiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLeaderboardOrdersByScoreDesc(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	board := NewLeaderboard(newClient(mr))
	ctx := context.Background()

	scores := map[string]int{"e1": 2, "e2": 5, "e3": 3}
	for id, score := range scores {
		err := board.Submit(ctx, domain.LeaderboardEntry{
			ID:        id,
			QuizID:    "quiz-1",
			Email:     "p@example.com",
			Score:     score,
			Possible:  6,
			CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}

	top, err := board.Top(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(top))
	}
	if top[0].ID != "e2" || top[0].Score != 5 {
		t.Fatalf("expected best score first, got %+v", top[0])
	}
	if top[2].ID != "e1" {
		t.Fatalf("expected lowest score last, got %+v", top[2])
	}
}

func TestLeaderboardEmptyQuiz(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	board := NewLeaderboard(newClient(mr))
	top, err := board.Top(context.Background(), "quiz-empty")
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("expected no entries, got %v", top)
	}
}
