package play

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/memorymate/backend/internal/models"
	"github.com/memorymate/backend/internal/narration"
	"github.com/memorymate/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func testGame(n int, limit *int) models.Game {
	g := models.Game{
		ID:               "game-1",
		Name:             "Summer",
		Difficulty:       models.DifficultyEasy,
		QuestionCount:    n,
		TimeLimitSeconds: limit,
	}
	for i := 0; i < n; i++ {
		g.Questions = append(g.Questions, models.Question{
			ID:            "q" + string(rune('a'+i)),
			ImageURL:      "data:image/png;base64,aGVsbG8=",
			Question:      "Where was this?",
			Options:       []string{"Park", "Beach", "Lake", "Home"},
			CorrectAnswer: 1,
		})
	}
	return g
}

func intPtr(v int) *int { return &v }

func TestSession_AnswerAllAndComplete(t *testing.T) {
	ctx := context.Background()
	gs := store.NewGameStore(store.NewMemoryBackend(), nil)
	game := testGame(3, nil)
	require.NoError(t, gs.Add(ctx, game))

	clock := newFakeClock()
	s, err := NewSession("s1", game, Options{Recorder: gs, Clock: clock})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, StateInProgress, snap.State)
	assert.Equal(t, 0, snap.QuestionIndex)

	clock.Advance(2 * time.Second)
	snap, err = s.Answer(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.QuestionIndex)
	require.NotNil(t, snap.Questions[0].UserAnswer)
	assert.Equal(t, 1, *snap.Questions[0].UserAnswer)
	assert.InDelta(t, 2.0, *snap.Questions[0].TimeSpentSeconds, 1e-9)

	_, err = s.Answer(ctx, 1, 0)
	require.NoError(t, err)
	clock.Advance(3 * time.Second)
	snap, err = s.Answer(ctx, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 2, snap.Result.Score)
	assert.Equal(t, 3, snap.Result.TotalQuestions)
	assert.InDelta(t, 5.0, snap.Result.TimeSpentSeconds, 1e-9)

	stored, err := gs.Get(ctx, game.ID)
	require.NoError(t, err)
	require.Len(t, stored.Results, 1)
	assert.Equal(t, stored.QuestionCount, stored.Results[0].TotalQuestions)
	assert.Equal(t, snap.Result.ID, stored.Results[0].ID)
	assert.Nil(t, stored.Questions[0].UserAnswer, "stored template must stay unanswered")

	_, err = s.Answer(ctx, 2, 0)
	assert.ErrorIs(t, err, ErrSessionCompleted)
	stored, err = gs.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Results, 1)
}

func TestSession_WrongAnswerRecordedAndAdvances(t *testing.T) {
	s, err := NewSession("s1", testGame(2, nil), Options{Clock: newFakeClock()})
	require.NoError(t, err)

	snap, err := s.Answer(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.QuestionIndex)
	assert.Equal(t, 2, *snap.Questions[0].UserAnswer)
}

func TestSession_InvalidAnswer(t *testing.T) {
	s, err := NewSession("s1", testGame(2, nil), Options{Clock: newFakeClock()})
	require.NoError(t, err)

	for _, idx := range []int{-1, 4} {
		_, err := s.Answer(context.Background(), 0, idx)
		assert.ErrorIs(t, err, ErrInvalidAnswer)
	}
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.Nil(t, snap.Questions[0].UserAnswer)
}

func TestSession_TimerExpiryAdvances(t *testing.T) {
	clock := newFakeClock()
	s, err := NewSession("s1", testGame(2, intPtr(15)), Options{Clock: clock})
	require.NoError(t, err)

	first := clock.last()
	require.NotNil(t, first)
	assert.Equal(t, 15*time.Second, first.d)

	clock.Advance(15 * time.Second)
	first.f()

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.QuestionIndex)
	assert.Nil(t, snap.Questions[0].UserAnswer)
	require.NotNil(t, snap.Questions[0].TimeSpentSeconds)
	assert.InDelta(t, 15.0, *snap.Questions[0].TimeSpentSeconds, 1e-9)

	second := clock.last()
	assert.NotSame(t, first, second)
	second.f()

	snap = s.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 0, snap.Result.Score)
	assert.Equal(t, 2, snap.Result.TotalQuestions)
	assert.Equal(t, 0, clock.active())
}

func TestSession_StaleTimerIgnored(t *testing.T) {
	clock := newFakeClock()
	s, err := NewSession("s1", testGame(3, intPtr(10)), Options{Clock: clock})
	require.NoError(t, err)

	stale := clock.last()
	_, err = s.Answer(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.True(t, stale.stopped)

	stale.f()
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.QuestionIndex, "expired timer of an answered question must not advance")
	assert.Nil(t, snap.Questions[1].TimeSpentSeconds)
}

func TestSession_AnswerAfterTimeoutIsStale(t *testing.T) {
	clock := newFakeClock()
	s, err := NewSession("s1", testGame(3, intPtr(10)), Options{Clock: clock})
	require.NoError(t, err)

	clock.Advance(11 * time.Second)
	clock.last().f()

	snap, err := s.Answer(context.Background(), 0, 2)
	assert.ErrorIs(t, err, ErrStaleAnswer)
	assert.Equal(t, 1, snap.QuestionIndex)
	assert.Nil(t, snap.Questions[0].UserAnswer)
	require.NotNil(t, snap.Questions[0].TimeSpentSeconds)
	assert.Nil(t, snap.Questions[1].UserAnswer, "answer for the timed-out question must not land on the next one")

	snap, err = s.Answer(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, *snap.Questions[1].UserAnswer)
	assert.Equal(t, 2, snap.QuestionIndex)
}

func TestSession_AnswerAheadIsStale(t *testing.T) {
	s, err := NewSession("s1", testGame(2, nil), Options{Clock: newFakeClock()})
	require.NoError(t, err)

	_, err = s.Answer(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrStaleAnswer)
	assert.Equal(t, 0, s.Snapshot().QuestionIndex)
}

func TestSession_SnapshotCarriesTimeLimit(t *testing.T) {
	s, err := NewSession("s1", testGame(1, intPtr(20)), Options{Clock: newFakeClock()})
	require.NoError(t, err)

	snap := s.Snapshot()
	require.NotNil(t, snap.TimeLimitSeconds)
	assert.Equal(t, 20, *snap.TimeLimitSeconds)
	assert.True(t, snap.CompletedAt.IsZero())
}

func TestSession_CloseReleasesTimer(t *testing.T) {
	clock := newFakeClock()
	s, err := NewSession("s1", testGame(2, intPtr(10)), Options{Clock: clock})
	require.NoError(t, err)
	assert.Equal(t, 1, clock.active())

	s.Close()
	assert.Equal(t, 0, clock.active())

	clock.last().f()
	assert.Equal(t, 0, s.Snapshot().QuestionIndex)
}

func TestSession_PlayAgainReclones(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession("s1", testGame(1, nil), Options{Clock: newFakeClock()})
	require.NoError(t, err)

	_, err = s.PlayAgain()
	assert.ErrorIs(t, err, ErrNotInProgress)

	snap, err := s.Answer(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)

	snap, err = s.PlayAgain()
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, snap.State)
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.Questions[0].UserAnswer)
	assert.Nil(t, snap.Questions[0].TimeSpentSeconds)
}

type failingRecorder struct{}

func (failingRecorder) AppendResult(context.Context, string, models.Result) error {
	return errors.New("disk full")
}

func TestSession_PersistFailureStillCompletes(t *testing.T) {
	s, err := NewSession("s1", testGame(1, nil), Options{Recorder: failingRecorder{}, Clock: newFakeClock()})
	require.NoError(t, err)

	snap, err := s.Answer(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
	require.NotNil(t, snap.Result)
	assert.EqualError(t, snap.PersistErr, "disk full")
}

func TestSession_Narration(t *testing.T) {
	var spoken []string
	n := narration.Func(func(text string) { spoken = append(spoken, text) })

	s, err := NewSession("s1", testGame(1, nil), Options{Narrator: n, Clock: newFakeClock()})
	require.NoError(t, err)
	_, err = s.Answer(context.Background(), 0, 1)
	require.NoError(t, err)

	require.Len(t, spoken, 3)
	assert.Equal(t, "Starting Summer. This game has 1 questions.", spoken[0])
	assert.Contains(t, spoken[1], "Question 1. Where was this?")
	assert.Equal(t, "Game complete. You got 1 out of 1 correct.", spoken[2])
}

func TestSession_PanickingNarratorDoesNotBreakPlay(t *testing.T) {
	n := narration.Func(func(string) { panic("no audio") })
	s, err := NewSession("s1", testGame(1, nil), Options{Narrator: n, Clock: newFakeClock()})
	require.NoError(t, err)

	snap, err := s.Answer(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
}

func TestNewSession_NoQuestions(t *testing.T) {
	_, err := NewSession("s1", models.Game{ID: "empty"}, Options{})
	assert.ErrorIs(t, err, ErrNoQuestions)
}
