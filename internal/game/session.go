package game

import (
	"sync"
	"time"

	"snapquiz-service/internal/domain"
)

// Feedback kinds pushed to clients after an interaction.
const (
	FeedbackHit        = "hit"
	FeedbackMiss       = "miss"
	FeedbackBackground = "background"
	FeedbackFocus      = "focus"
	FeedbackAdvance    = "advance"
	FeedbackScore      = "score"
)

// Feedback describes the visual acknowledgment for the last interaction.
type Feedback struct {
	Kind  string `json:"kind"`
	BoxID string `json:"boxId,omitempty"`
}

// Snapshot is a subscriber-facing view of the session state.
type Snapshot struct {
	SessionID         string              `json:"sessionId"`
	QuizID            string              `json:"quizId"`
	Phase             domain.Phase        `json:"phase"`
	FrameIndex        int                 `json:"frameIndex"`
	FrameCount        int                 `json:"frameCount"`
	ElapsedSec        int                 `json:"elapsedSec"`
	NextExpectedOrder int                 `json:"nextExpectedOrder"`
	HotspotsHit       []string            `json:"hotspotsHit"`
	InputValues       map[string]string   `json:"inputValues"`
	WrongHotspots     int                 `json:"wrongHotspots"`
	Background        int                 `json:"background"`
	MissClicks        []domain.Point      `json:"missClicks,omitempty"`
	Feedback          *Feedback           `json:"feedback,omitempty"`
	Score             *domain.ScoreReport `json:"score,omitempty"`
}

// Session is the frame-sequencing and scoring state machine for one play of a
// frame set. All mutation happens under the mutex in response to discrete
// events (clicks, typed text, navigation, timer ticks); once review mode is
// entered the answer state and mistake counters freeze.
type Session struct {
	id           string
	set          domain.FrameSet
	advanceDelay time.Duration
	now          func() time.Time
	startedAt    time.Time

	mu           sync.Mutex
	phase        domain.Phase
	frame        int
	answers      []domain.AnswerState
	progress     []domain.SequenceProgress
	mistakes     domain.MistakeTally
	elapsedSec   int
	score        *domain.ScoreReport
	advanceToken int
	feedback     *Feedback
	subscribers  map[chan Snapshot]struct{}
}

// NewSession builds a fresh session over set. advanceDelay is the pause after
// a completed frame before auto-advancing; zero or negative advances inline.
func NewSession(id string, set domain.FrameSet, advanceDelay time.Duration) *Session {
	return NewSessionWithClock(id, set, advanceDelay, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, set domain.FrameSet, advanceDelay time.Duration, now func() time.Time) *Session {
	answers := make([]domain.AnswerState, len(set.Frames))
	progress := make([]domain.SequenceProgress, len(set.Frames))
	for i := range set.Frames {
		answers[i] = domain.NewAnswerState()
		progress[i] = domain.SequenceProgress{NextExpectedOrder: 1}
	}
	return &Session{
		id:           id,
		set:          set,
		advanceDelay: advanceDelay,
		now:          now,
		phase:        domain.PhaseNotStarted,
		answers:      answers,
		progress:     progress,
		mistakes:     domain.NewMistakeTally(),
		subscribers:  make(map[chan Snapshot]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// QuizID returns the identifier of the frame set being played.
func (s *Session) QuizID() string { return s.set.ID }

// Start moves the session into in_progress. Starting twice is a no-op.
func (s *Session) Start() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.PhaseNotStarted {
		s.phase = domain.PhaseInProgress
		s.startedAt = s.now()
	}
	return s.broadcastLocked()
}

// Click resolves an image coordinate against the current frame and applies
// the sequencing rules: hotspot clicks run the ordering logic, clicks inside
// an input region only focus it, and background clicks count as a mistake
// when the frame has at least one hotspot.
func (s *Session) Click(p domain.Point) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return Feedback{}, err
	}

	frame := s.set.Frames[s.frame]
	for _, h := range frame.Hotspots {
		if h.Region.Contains(p) {
			fb := s.hotspotLocked(frame, h)
			s.broadcastLocked()
			return fb, nil
		}
	}
	for _, in := range frame.Inputs {
		if in.Region.Contains(p) {
			fb := Feedback{Kind: FeedbackFocus, BoxID: in.ID}
			s.feedback = &fb
			s.broadcastLocked()
			return fb, nil
		}
	}

	fb := Feedback{}
	if len(frame.Hotspots) > 0 {
		s.mistakes.Background++
		s.mistakes.MissClicks[s.frame] = append(s.mistakes.MissClicks[s.frame], p)
		fb = Feedback{Kind: FeedbackBackground}
		s.feedback = &fb
	}
	s.broadcastLocked()
	return fb, nil
}

// ClickHotspot applies a hotspot click identified by box ID.
func (s *Session) ClickHotspot(boxID string) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return Feedback{}, err
	}
	frame := s.set.Frames[s.frame]
	h, ok := frame.HotspotByID(boxID)
	if !ok {
		return Feedback{}, domain.ErrBoxNotFound
	}
	fb := s.hotspotLocked(frame, h)
	s.broadcastLocked()
	return fb, nil
}

func (s *Session) hotspotLocked(frame domain.Frame, h domain.Hotspot) Feedback {
	answers := &s.answers[s.frame]
	if _, hit := answers.HotspotsHit[h.ID]; hit {
		// Already collected; neither a mistake nor a second advance.
		return Feedback{Kind: FeedbackHit, BoxID: h.ID}
	}

	if !frame.Sequential() {
		answers.HotspotsHit[h.ID] = struct{}{}
		fb := Feedback{Kind: FeedbackHit, BoxID: h.ID}
		s.feedback = &fb
		s.scheduleAdvanceLocked()
		return fb
	}

	prog := &s.progress[s.frame]
	if h.Order != prog.NextExpectedOrder {
		s.mistakes.WrongHotspots++
		fb := Feedback{Kind: FeedbackMiss, BoxID: h.ID}
		s.feedback = &fb
		return fb
	}

	answers.HotspotsHit[h.ID] = struct{}{}
	prog.NextExpectedOrder++
	fb := Feedback{Kind: FeedbackHit, BoxID: h.ID}
	s.feedback = &fb
	if h.Order == frame.MaxOrder() {
		s.scheduleAdvanceLocked()
	}
	return fb
}

// SetInput records typed text for an input box on the current frame.
func (s *Session) SetInput(boxID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	frame := s.set.Frames[s.frame]
	found := false
	for _, in := range frame.Inputs {
		if in.ID == boxID {
			found = true
			break
		}
	}
	if !found {
		return domain.ErrBoxNotFound
	}
	s.answers[s.frame].InputValues[boxID] = text
	s.broadcastLocked()
	return nil
}

// Advance moves to the next frame, or into review on the last frame. In
// review mode it is read-only forward navigation, clamped at the last frame.
func (s *Session) Advance() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.PhaseNotStarted {
		return s.snapshotLocked()
	}
	// A manual advance supersedes any pending auto-advance.
	s.advanceToken++
	s.advanceLocked()
	return s.broadcastLocked()
}

// Retreat moves to the previous frame. Only review mode allows it; it has no
// effect before the first frame.
func (s *Session) Retreat() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.PhaseReview && s.frame > 0 {
		s.frame--
		return s.broadcastLocked()
	}
	return s.snapshotLocked()
}

// Tick adds one second of active time. It only counts while in progress.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseInProgress {
		return
	}
	s.elapsedSec++
	s.broadcastLocked()
}

// Finish forces the session into review mode, computing the score.
func (s *Session) Finish() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.PhaseInProgress {
		s.enterReviewLocked()
	}
	return s.broadcastLocked()
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ElapsedSec returns accumulated active seconds.
func (s *Session) ElapsedSec() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedSec
}

// Score returns the final report, or false before review mode.
func (s *Session) Score() (domain.ScoreReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.score == nil {
		return domain.ScoreReport{}, false
	}
	return *s.score, true
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving state snapshots. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) mutableLocked() error {
	switch s.phase {
	case domain.PhaseNotStarted:
		return domain.ErrNotStarted
	case domain.PhaseReview:
		return domain.ErrSessionFinished
	}
	return nil
}

// scheduleAdvanceLocked arms the delayed auto-advance. Each trigger bumps the
// token so that overlapping triggers collapse: only the latest one fires.
func (s *Session) scheduleAdvanceLocked() {
	s.advanceToken++
	if s.advanceDelay <= 0 {
		s.advanceLocked()
		return
	}
	token := s.advanceToken
	time.AfterFunc(s.advanceDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.advanceToken != token || s.phase != domain.PhaseInProgress {
			return
		}
		s.advanceLocked()
		s.broadcastLocked()
	})
}

func (s *Session) advanceLocked() {
	if s.phase == domain.PhaseReview {
		if s.frame < len(s.set.Frames)-1 {
			s.frame++
		}
		return
	}
	if s.frame < len(s.set.Frames)-1 {
		s.frame++
		fb := Feedback{Kind: FeedbackAdvance}
		s.feedback = &fb
		return
	}
	s.enterReviewLocked()
}

func (s *Session) enterReviewLocked() {
	s.phase = domain.PhaseReview
	report := ScoreAnswers(s.set.Frames, s.answers, s.mistakes)
	s.score = &report
	fb := Feedback{Kind: FeedbackScore}
	s.feedback = &fb
}

func (s *Session) broadcastLocked() Snapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow subscriber never blocks us.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() Snapshot {
	hit := make([]string, 0, len(s.answers[s.frame].HotspotsHit))
	for id := range s.answers[s.frame].HotspotsHit {
		hit = append(hit, id)
	}
	values := make(map[string]string, len(s.answers[s.frame].InputValues))
	for k, v := range s.answers[s.frame].InputValues {
		values[k] = v
	}
	var misses []domain.Point
	if pts := s.mistakes.MissClicks[s.frame]; len(pts) > 0 {
		misses = append(misses, pts...)
	}
	return Snapshot{
		SessionID:         s.id,
		QuizID:            s.set.ID,
		Phase:             s.phase,
		FrameIndex:        s.frame,
		FrameCount:        len(s.set.Frames),
		ElapsedSec:        s.elapsedSec,
		NextExpectedOrder: s.progress[s.frame].NextExpectedOrder,
		HotspotsHit:       hit,
		InputValues:       values,
		WrongHotspots:     s.mistakes.WrongHotspots,
		Background:        s.mistakes.Background,
		MissClicks:        misses,
		Feedback:          s.feedback,
		Score:             s.score,
	}
}
