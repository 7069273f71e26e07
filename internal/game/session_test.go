package game

import (
	"testing"
	"time"

	"snapquiz-service/internal/domain"
)

func TestUnorderedClickHitsAndAdvances(t *testing.T) {
	s := NewSession("s1", twoFrameSet(), 0)
	s.Start()

	fb, err := s.Click(domain.Point{X: 15, Y: 15})
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if fb.Kind != FeedbackHit || fb.BoxID != "h1" {
		t.Fatalf("expected hit on h1, got %+v", fb)
	}
	snap := s.Snapshot()
	if snap.FrameIndex != 1 {
		t.Fatalf("expected advance to frame 1, got %d", snap.FrameIndex)
	}
}

func TestSequentialOrderEnforced(t *testing.T) {
	s := NewSession("s1", sequencedSet(), 0)
	s.Start()

	// Out-of-order click on order=2 is a mistake, not a hit.
	if fb, err := s.ClickHotspot("b"); err != nil {
		t.Fatalf("click b: %v", err)
	} else if fb.Kind != FeedbackMiss {
		t.Fatalf("expected miss on out-of-order click, got %+v", fb)
	}
	snap := s.Snapshot()
	if snap.WrongHotspots != 1 {
		t.Fatalf("expected 1 wrong-hotspot mistake, got %d", snap.WrongHotspots)
	}
	if len(snap.HotspotsHit) != 0 {
		t.Fatalf("expected no hits yet, got %v", snap.HotspotsHit)
	}

	for _, id := range []string{"a", "b", "c"} {
		if fb, err := s.ClickHotspot(id); err != nil {
			t.Fatalf("click %s: %v", id, err)
		} else if fb.Kind != FeedbackHit {
			t.Fatalf("expected hit on %s, got %+v", id, fb)
		}
	}

	// Auto-advance fired exactly once, after the last ordered click.
	snap = s.Snapshot()
	if snap.Phase != domain.PhaseReview {
		t.Fatalf("expected review after final ordered click, got %s", snap.Phase)
	}
	if snap.Score == nil {
		t.Fatalf("expected score in review mode")
	}
	if snap.Score.Correct != 3 || snap.Score.Penalty != 1 || snap.Score.Final != 2 {
		t.Fatalf("unexpected score %+v", snap.Score)
	}
}

func TestDelayedAdvanceCollapses(t *testing.T) {
	s := NewSession("s1", twoFrameSet(), 20*time.Millisecond)
	s.Start()

	ch, cancel := s.Subscribe()
	defer cancel()
	<-ch // initial snapshot

	if _, err := s.Click(domain.Point{X: 15, Y: 15}); err != nil {
		t.Fatalf("click: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if snap.FrameIndex == 1 {
				return
			}
		case <-deadline:
			t.Fatalf("auto-advance never fired")
		}
	}
}

func TestManualAdvanceSupersedesPendingAutoAdvance(t *testing.T) {
	s := NewSession("s1", twoFrameSet(), 50*time.Millisecond)
	s.Start()

	if _, err := s.Click(domain.Point{X: 15, Y: 15}); err != nil {
		t.Fatalf("click: %v", err)
	}
	snap := s.Advance()
	if snap.FrameIndex != 1 {
		t.Fatalf("expected frame 1 after manual advance, got %d", snap.FrameIndex)
	}

	// The stale timer must not advance a second time.
	time.Sleep(120 * time.Millisecond)
	if got := s.Snapshot(); got.FrameIndex != 1 || got.Phase != domain.PhaseInProgress {
		t.Fatalf("pending auto-advance fired after manual advance: %+v", got)
	}
}

func TestBackgroundClickRules(t *testing.T) {
	s := NewSession("s1", twoFrameSet(), 0)
	s.Start()

	// Frame 0 has a hotspot: a background click counts and records coordinates.
	if fb, err := s.Click(domain.Point{X: 500, Y: 500}); err != nil {
		t.Fatalf("click: %v", err)
	} else if fb.Kind != FeedbackBackground {
		t.Fatalf("expected background feedback, got %+v", fb)
	}
	snap := s.Snapshot()
	if snap.Background != 1 {
		t.Fatalf("expected 1 background mistake, got %d", snap.Background)
	}
	if len(snap.MissClicks) != 1 || snap.MissClicks[0] != (domain.Point{X: 500, Y: 500}) {
		t.Fatalf("expected recorded miss coordinates, got %v", snap.MissClicks)
	}

	// Frame 1 has no hotspots: background clicks never count there.
	s.Advance()
	if _, err := s.Click(domain.Point{X: 500, Y: 500}); err != nil {
		t.Fatalf("click: %v", err)
	}
	if got := s.Snapshot().Background; got != 1 {
		t.Fatalf("background counter moved on hotspot-free frame: %d", got)
	}
}

func TestInputRegionClickIsNotAMistake(t *testing.T) {
	s := NewSession("s1", twoFrameSet(), 0)
	s.Start()
	s.Advance()

	fb, err := s.Click(domain.Point{X: 15, Y: 15})
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if fb.Kind != FeedbackFocus || fb.BoxID != "i1" {
		t.Fatalf("expected focus on i1, got %+v", fb)
	}
	snap := s.Snapshot()
	if snap.Background != 0 || snap.WrongHotspots != 0 {
		t.Fatalf("input click counted as mistake: %+v", snap)
	}
}

func TestReviewFreezesAllState(t *testing.T) {
	s := NewSession("s1", twoFrameSet(), 0)
	s.Start()
	if _, err := s.Click(domain.Point{X: 500, Y: 500}); err != nil {
		t.Fatalf("click: %v", err)
	}
	s.Finish()

	before := s.Snapshot()
	if before.Phase != domain.PhaseReview {
		t.Fatalf("expected review, got %s", before.Phase)
	}

	if _, err := s.Click(domain.Point{X: 15, Y: 15}); err != domain.ErrSessionFinished {
		t.Fatalf("expected rejection after review, got %v", err)
	}
	if err := s.SetInput("i1", "late"); err != domain.ErrSessionFinished {
		t.Fatalf("expected input rejection after review, got %v", err)
	}
	s.Tick()

	after := s.Snapshot()
	if after.Background != before.Background || after.WrongHotspots != before.WrongHotspots {
		t.Fatalf("counters changed in review: before=%+v after=%+v", before, after)
	}
	if after.ElapsedSec != before.ElapsedSec {
		t.Fatalf("timer moved in review")
	}
	if *after.Score != *before.Score {
		t.Fatalf("score changed in review")
	}
}

func TestTimerOnlyRunsInProgress(t *testing.T) {
	s := NewSession("s1", twoFrameSet(), 0)
	s.Tick()
	if s.ElapsedSec() != 0 {
		t.Fatalf("timer ran before start")
	}
	s.Start()
	s.Tick()
	s.Tick()
	if s.ElapsedSec() != 2 {
		t.Fatalf("expected 2 elapsed seconds, got %d", s.ElapsedSec())
	}
	s.Finish()
	s.Tick()
	if s.ElapsedSec() != 2 {
		t.Fatalf("timer ran in review")
	}
}

func TestRetreatOnlyInReview(t *testing.T) {
	s := NewSession("s1", twoFrameSet(), 0)
	s.Start()
	s.Advance()
	if snap := s.Retreat(); snap.FrameIndex != 1 {
		t.Fatalf("retreat moved frame while in progress: %d", snap.FrameIndex)
	}

	s.Finish()
	if snap := s.Retreat(); snap.FrameIndex != 0 {
		t.Fatalf("expected retreat to frame 0 in review, got %d", snap.FrameIndex)
	}
	// No effect before the first frame.
	if snap := s.Retreat(); snap.FrameIndex != 0 {
		t.Fatalf("retreat went past frame 0: %d", snap.FrameIndex)
	}
	// Forward navigation in review is clamped and read-only.
	s.Advance()
	if snap := s.Advance(); snap.FrameIndex != 1 || snap.Phase != domain.PhaseReview {
		t.Fatalf("unexpected review navigation state: %+v", snap)
	}
}

func TestClickBeforeStartRejected(t *testing.T) {
	s := NewSession("s1", twoFrameSet(), 0)
	if _, err := s.Click(domain.Point{X: 15, Y: 15}); err != domain.ErrNotStarted {
		t.Fatalf("expected not-started error, got %v", err)
	}
}

// twoFrameSet has an unordered hotspot frame followed by an input-only frame.
func twoFrameSet() domain.FrameSet {
	return domain.FrameSet{
		ID: "quiz-1",
		Frames: []domain.Frame{
			{
				ID:    "f1",
				Image: "one.png",
				Width: 400, Height: 300,
				Hotspots: []domain.Hotspot{
					{ID: "h1", Region: domain.Region{X: 10, Y: 10, W: 50, H: 20}},
				},
			},
			{
				ID:    "f2",
				Image: "two.png",
				Width: 400, Height: 300,
				Inputs: []domain.Input{
					{ID: "i1", Region: domain.Region{X: 10, Y: 10, W: 80, H: 20}, Expected: "Paris"},
				},
			},
		},
	}
}

// sequencedSet is a single frame with hotspots of order 1, 2, 3.
func sequencedSet() domain.FrameSet {
	return domain.FrameSet{
		ID: "quiz-seq",
		Frames: []domain.Frame{
			{
				ID:    "f1",
				Image: "seq.png",
				Width: 400, Height: 300,
				Hotspots: []domain.Hotspot{
					{ID: "a", Region: domain.Region{X: 0, Y: 0, W: 10, H: 10}, Order: 1},
					{ID: "b", Region: domain.Region{X: 20, Y: 0, W: 10, H: 10}, Order: 2},
					{ID: "c", Region: domain.Region{X: 40, Y: 0, W: 10, H: 10}, Order: 3},
				},
			},
		},
	}
}
