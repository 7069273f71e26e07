package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a play session does not exist.
	ErrSessionNotFound = errors.New("play session not found")
	// ErrQuizNotFound indicates the bundle content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrBoxNotFound indicates a submitted box ID is not on the current frame.
	ErrBoxNotFound = errors.New("box not found on current frame")
	// ErrSessionFinished rejects mutation once review mode is active.
	ErrSessionFinished = errors.New("session already in review mode")
	// ErrNotStarted rejects interaction before the session starts.
	ErrNotStarted = errors.New("session not started")
)
