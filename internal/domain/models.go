package domain

import "time"

// Phase tracks the lifecycle of a play session.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseReview     Phase = "review"
)

// Point is an image-relative coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Region is an axis-aligned rectangle in image coordinates.
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether p falls inside the region.
func (r Region) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Hotspot is a clickable region. Order > 0 places it in the frame's
// required click sequence; 0 means unordered.
type Hotspot struct {
	ID     string `json:"id"`
	Region Region `json:"region"`
	Order  int    `json:"order,omitempty"`
}

// Input is a text-entry region with an expected answer.
type Input struct {
	ID       string `json:"id"`
	Region   Region `json:"region"`
	Expected string `json:"expected"`
}

// Frame is one screen: an image plus its interactive boxes.
// Created once at load time and immutable thereafter.
type Frame struct {
	ID       string    `json:"id"`
	Image    string    `json:"image"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Hotspots []Hotspot `json:"hotspots,omitempty"`
	Inputs   []Input   `json:"inputs,omitempty"`
}

// Sequential reports whether the frame requires an ordered click sequence,
// which takes two or more ordered hotspots.
func (f Frame) Sequential() bool {
	ordered := 0
	for _, h := range f.Hotspots {
		if h.Order > 0 {
			ordered++
		}
	}
	return ordered >= 2
}

// MaxOrder returns the highest hotspot order on the frame, or 0.
func (f Frame) MaxOrder() int {
	max := 0
	for _, h := range f.Hotspots {
		if h.Order > max {
			max = h.Order
		}
	}
	return max
}

// HotspotByID looks up a hotspot on the frame.
func (f Frame) HotspotByID(id string) (Hotspot, bool) {
	for _, h := range f.Hotspots {
		if h.ID == id {
			return h, true
		}
	}
	return Hotspot{}, false
}

// Boxes returns the number of scorable boxes on the frame.
func (f Frame) Boxes() int {
	return len(f.Hotspots) + len(f.Inputs)
}

// FrameSet is a loaded quiz bundle: an ordered list of frames.
type FrameSet struct {
	ID     string  `json:"id"`
	Title  string  `json:"title,omitempty"`
	Frames []Frame `json:"frames"`
}

// AnswerState records what the user has clicked or typed on one frame.
type AnswerState struct {
	InputValues map[string]string   `json:"inputValues"`
	HotspotsHit map[string]struct{} `json:"hotspotsHit"`
}

// NewAnswerState returns an empty per-frame answer record.
func NewAnswerState() AnswerState {
	return AnswerState{
		InputValues: make(map[string]string),
		HotspotsHit: make(map[string]struct{}),
	}
}

// SequenceProgress tracks the next expected order on a sequential frame.
type SequenceProgress struct {
	NextExpectedOrder int `json:"nextExpectedOrder"`
}

// MistakeTally accumulates mistakes across the whole session. Counters only
// grow while the session is in progress; MissClicks keeps the literal
// coordinates of background misses per frame index for the review overlay.
type MistakeTally struct {
	WrongHotspots int             `json:"wrongHotspots"`
	Background    int             `json:"background"`
	MissClicks    map[int][]Point `json:"missClicks"`
}

// NewMistakeTally returns an empty tally.
func NewMistakeTally() MistakeTally {
	return MistakeTally{MissClicks: make(map[int][]Point)}
}

// Total is the combined deduction applied at scoring time.
func (m MistakeTally) Total() int {
	return m.WrongHotspots + m.Background
}

// ScoreReport is the result computed once review mode is entered.
type ScoreReport struct {
	Correct  int `json:"correct"`
	Possible int `json:"possible"`
	Penalty  int `json:"penalty"`
	Final    int `json:"final"`
}

// LeaderboardEntry is one submitted score for a quiz.
type LeaderboardEntry struct {
	ID         string    `json:"id"`
	QuizID     string    `json:"quizId"`
	Email      string    `json:"email"`
	Score      int       `json:"score"`
	Possible   int       `json:"possible"`
	ElapsedSec int       `json:"elapsedSec"`
	CreatedAt  time.Time `json:"createdAt"`
}
