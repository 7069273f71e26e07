package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"snapquiz-service/internal/domain"
	"snapquiz-service/internal/game"
)

// SessionRepository abstracts how play sessions are stored (in-memory, Redis-backed, etc).
type SessionRepository interface {
	Put(session *game.Session)
	Get(sessionID string) (*game.Session, bool)
	Delete(sessionID string)
}

// FrameSetRepository loads quiz bundles (from cache/backing store).
type FrameSetRepository interface {
	GetFrameSet(ctx context.Context, quizID string) (domain.FrameSet, error)
}

// LeaderboardStore is append-only score storage with a per-quiz query.
type LeaderboardStore interface {
	Submit(ctx context.Context, entry domain.LeaderboardEntry) error
	Top(ctx context.Context, quizID string) ([]domain.LeaderboardEntry, error)
}

// PlayerService contains the quiz player use cases: it creates sessions over
// loaded frame sets, routes interactions into the state machine, drives the
// per-second timer, and submits finished scores to the leaderboard.
type PlayerService struct {
	sessions     SessionRepository
	sets         FrameSetRepository
	board        LeaderboardStore
	advanceDelay time.Duration
}

func NewPlayerService(sessions SessionRepository, sets FrameSetRepository, board LeaderboardStore, advanceDelay time.Duration) *PlayerService {
	return &PlayerService{
		sessions:     sessions,
		sets:         sets,
		board:        board,
		advanceDelay: advanceDelay,
	}
}

// StartSession loads the quiz and begins a fresh session for it.
func (s *PlayerService) StartSession(ctx context.Context, quizID string) (game.Snapshot, error) {
	set, err := s.sets.GetFrameSet(ctx, quizID)
	if err != nil {
		return game.Snapshot{}, err
	}
	if len(set.Frames) == 0 {
		return game.Snapshot{}, fmt.Errorf("quiz %s has no frames", quizID)
	}
	session := game.NewSession(uuid.NewString(), set, s.advanceDelay)
	s.sessions.Put(session)
	snap := session.Start()
	go s.runTimer(session)
	return snap, nil
}

// runTimer ticks the session once per second until it leaves in_progress.
func (s *PlayerService) runTimer(session *game.Session) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if session.Phase() != domain.PhaseInProgress {
			return
		}
		session.Tick()
	}
}

// Click applies an image-coordinate click to the session's current frame.
func (s *PlayerService) Click(_ context.Context, sessionID string, p domain.Point) (game.Feedback, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Feedback{}, domain.ErrSessionNotFound
	}
	return session.Click(p)
}

// SetInput records typed text for an input box on the current frame.
func (s *PlayerService) SetInput(_ context.Context, sessionID, boxID, text string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.SetInput(boxID, text)
}

// Advance moves the session forward one frame (or into review on the last).
func (s *PlayerService) Advance(_ context.Context, sessionID string) (game.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Advance(), nil
}

// Retreat moves back one frame while reviewing results.
func (s *PlayerService) Retreat(_ context.Context, sessionID string) (game.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Retreat(), nil
}

// Subscribe returns a channel that receives state snapshots for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *PlayerService) Subscribe(_ context.Context, sessionID string) (<-chan game.Snapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Finish forces the session into review mode and, when an email is supplied,
// submits the score to the leaderboard without blocking the caller.
func (s *PlayerService) Finish(ctx context.Context, sessionID, email string) (game.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	snap := session.Finish()
	if email != "" && s.board != nil && snap.Score != nil {
		entry := domain.LeaderboardEntry{
			ID:         uuid.NewString(),
			QuizID:     session.QuizID(),
			Email:      email,
			Score:      snap.Score.Final,
			Possible:   snap.Score.Possible,
			ElapsedSec: snap.ElapsedSec,
			CreatedAt:  time.Now().UTC(),
		}
		go func() {
			subCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.board.Submit(subCtx, entry); err != nil {
				log.Printf("leaderboard submit failed: %v", err)
			}
		}()
	}
	return snap, nil
}

// Leaderboard returns all entries for a quiz, best score first.
func (s *PlayerService) Leaderboard(ctx context.Context, quizID string) ([]domain.LeaderboardEntry, error) {
	if s.board == nil {
		return nil, nil
	}
	return s.board.Top(ctx, quizID)
}

// SubmitScore appends a score directly, for clients that keep their own state.
func (s *PlayerService) SubmitScore(ctx context.Context, entry domain.LeaderboardEntry) error {
	if s.board == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return s.board.Submit(ctx, entry)
}

// DropSession discards a session and all of its state.
func (s *PlayerService) DropSession(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Finish()
	s.sessions.Delete(sessionID)
}
