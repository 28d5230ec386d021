package onboarding

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	at    time.Duration
	event Event
}

type recorder struct {
	mu     sync.Mutex
	clock  *manualClock
	events []recorded
}

func (r *recorder) listen(e Event) {
	at := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{at: at, event: e})
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) ofKind(kind EventKind) []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recorded
	for _, e := range r.events {
		if e.event.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func newTestSequencer(t *testing.T, clock *manualClock) (*Sequencer, *recorder) {
	t.Helper()
	rec := &recorder{clock: clock}
	s := New(
		WithClock(clock),
		WithTimings(DefaultTimings()),
		WithListener(rec.listen),
	)
	t.Cleanup(s.Close)
	return s, rec
}

func TestSequencerRunsPhasesInOrder(t *testing.T) {
	clock := &manualClock{}
	s, rec := newTestSequencer(t, clock)

	require.NoError(t, s.Start())
	clock.Advance(1999 * time.Millisecond)
	assert.Equal(t, Intro, s.State().Phase)

	clock.Advance(time.Millisecond)
	assert.Equal(t, Animating, s.State().Phase)

	clock.Advance(30 * time.Second)

	got := rec.ofKind(EventPhase)
	require.Len(t, got, 4)
	want := []Phase{Intro, Animating, BorderReveal, ImageReveal}
	for i, e := range got {
		assert.Equal(t, want[i], e.event.State.Phase)
		if i > 0 {
			assert.GreaterOrEqual(t, e.at-got[i-1].at, 2*time.Second)
		}
	}

	st := s.State()
	assert.True(t, st.BorderVisible)
	assert.True(t, st.ImageVisible)
	assert.Equal(t, 0, clock.Pending())
}

func TestSequencerFlagsFollowPhase(t *testing.T) {
	clock := &manualClock{}
	s, rec := newTestSequencer(t, clock)

	require.NoError(t, s.Start())
	clock.Advance(10 * time.Second)

	for _, e := range rec.ofKind(EventPhase) {
		st := e.event.State
		assert.Equal(t, st.Phase >= BorderReveal, st.BorderVisible, st.Phase.String())
		assert.Equal(t, st.Phase == ImageReveal, st.ImageVisible, st.Phase.String())
	}
}

func TestSequencerResetMidFlight(t *testing.T) {
	clock := &manualClock{}
	s, _ := newTestSequencer(t, clock)

	require.NoError(t, s.Start())
	clock.Advance(4 * time.Second)
	require.Equal(t, BorderReveal, s.State().Phase)
	require.NoError(t, s.PickImage())

	require.NoError(t, s.Reset())
	st := s.State()
	assert.Equal(t, Intro, st.Phase)
	assert.False(t, st.BorderVisible)
	assert.False(t, st.ImageVisible)
	assert.False(t, st.GlowArmed)

	clock.Advance(1999 * time.Millisecond)
	assert.Equal(t, Intro, s.State().Phase)
	clock.Advance(time.Millisecond)
	assert.Equal(t, Animating, s.State().Phase)
}

func TestSequencerIgnoresStaleTimerAfterReset(t *testing.T) {
	clock := &manualClock{ignoreStop: true}
	s, _ := newTestSequencer(t, clock)

	require.NoError(t, s.Start())
	clock.Advance(time.Second)
	require.NoError(t, s.Reset())

	// The pre-reset timer still fires at 2s.
	clock.Advance(time.Second)
	assert.Equal(t, Intro, s.State().Phase)

	clock.Advance(time.Second)
	assert.Equal(t, Animating, s.State().Phase)
}

func TestSequencerIgnoresTimersAfterClose(t *testing.T) {
	clock := &manualClock{ignoreStop: true}
	s, rec := newTestSequencer(t, clock)

	require.NoError(t, s.Start())
	require.NoError(t, s.OnIntroAnimationComplete())
	before := s.State()
	n := rec.count()

	s.Close()
	clock.Advance(time.Minute)

	assert.Equal(t, before, s.State())
	assert.Equal(t, n, rec.count())
	assert.ErrorIs(t, s.Advance(), ErrClosed)
	assert.ErrorIs(t, s.Start(), ErrClosed)
}

func TestSequencerAdvanceSkipsDwell(t *testing.T) {
	clock := &manualClock{}
	s, rec := newTestSequencer(t, clock)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(500 * time.Millisecond)
	require.NoError(t, s.Advance())
	assert.Equal(t, Animating, s.State().Phase)
	assert.Equal(t, 1, clock.Pending())

	// The skipped dwell no longer fires; the new one counts from the skip.
	clock.Advance(1999 * time.Millisecond)
	assert.Equal(t, Animating, s.State().Phase)
	clock.Advance(time.Millisecond)
	assert.Equal(t, BorderReveal, s.State().Phase)

	require.NoError(t, s.Advance())
	require.NoError(t, s.Advance())
	assert.Equal(t, ImageReveal, s.State().Phase)
	assert.Len(t, rec.ofKind(EventPhase), 4)
}

func TestSequencerStepTrack(t *testing.T) {
	clock := &manualClock{}
	s, _ := newTestSequencer(t, clock)
	require.NoError(t, s.Start())

	require.NoError(t, s.OnMorphComplete())
	assert.Equal(t, StepTypography, s.State().Step)

	require.NoError(t, s.OnIntroAnimationComplete())
	st := s.State()
	assert.Equal(t, StepMorph, st.Step)
	assert.True(t, st.OverlayVisible)
	assert.False(t, st.StageVisible)

	clock.Advance(999 * time.Millisecond)
	assert.False(t, s.State().StageVisible)
	clock.Advance(time.Millisecond)
	assert.True(t, s.State().StageVisible)
	assert.True(t, s.State().OverlayVisible)

	clock.Advance(499 * time.Millisecond)
	assert.True(t, s.State().OverlayVisible)
	clock.Advance(time.Millisecond)
	assert.False(t, s.State().OverlayVisible)

	require.NoError(t, s.OnIntroAnimationComplete())
	assert.Equal(t, StepMorph, s.State().Step)

	require.NoError(t, s.OnMorphComplete())
	assert.Equal(t, StepMainInteractive, s.State().Step)
	assert.True(t, s.State().OverlayVisible)
	clock.Advance(1999 * time.Millisecond)
	assert.True(t, s.State().OverlayVisible)
	clock.Advance(time.Millisecond)
	assert.False(t, s.State().OverlayVisible)
	assert.True(t, s.State().StageVisible)
}

func TestSequencerStepPathsDoNotClearEachOther(t *testing.T) {
	clock := &manualClock{}
	s, _ := newTestSequencer(t, clock)
	require.NoError(t, s.Start())

	require.NoError(t, s.OnIntroAnimationComplete())
	clock.Advance(200 * time.Millisecond)
	require.NoError(t, s.OnMorphComplete())

	// Intro tail ends at 1.5s; the morph overlay holds until 2.2s.
	clock.Advance(1400 * time.Millisecond)
	assert.True(t, s.State().OverlayVisible)
	clock.Advance(599 * time.Millisecond)
	assert.True(t, s.State().OverlayVisible)
	clock.Advance(time.Millisecond)
	assert.False(t, s.State().OverlayVisible)
}

func TestSequencerGlowStaysArmed(t *testing.T) {
	clock := &manualClock{}
	s, rec := newTestSequencer(t, clock)
	require.NoError(t, s.Start())

	assert.ErrorIs(t, s.PickImage(), ErrNotReady)
	assert.False(t, s.State().GlowArmed)

	clock.Advance(4 * time.Second)
	require.NoError(t, s.PickImage())
	assert.True(t, s.State().GlowArmed)

	clock.Advance(time.Hour)
	require.NoError(t, s.PickImage())
	assert.True(t, s.State().GlowArmed)
	assert.Len(t, rec.ofKind(EventGlow), 1)
}

func TestSequencerUploadFailureKeepsPhase(t *testing.T) {
	clock := &manualClock{}
	s, _ := newTestSequencer(t, clock)
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.BeginUpload(), ErrNotReady)

	clock.Advance(6 * time.Second)
	require.Equal(t, ImageReveal, s.State().Phase)

	require.NoError(t, s.BeginUpload())
	assert.True(t, s.State().Uploading)
	require.NoError(t, s.CompleteUpload("abcdefgh2345"))

	require.NoError(t, s.BeginUpload())
	require.NoError(t, s.FailUpload("Error processing upload"))

	st := s.State()
	assert.Equal(t, ImageReveal, st.Phase)
	assert.False(t, st.Uploading)
	assert.Equal(t, "abcdefgh2345", st.FileID)
	assert.Equal(t, "Error processing upload", st.UploadError)
	assert.True(t, st.ImageVisible)
}

type fakeWatcher struct {
	mu      sync.Mutex
	userID  string
	fn      func(string)
	stopped bool
}

func (w *fakeWatcher) Watch(fn func(string)) func() {
	w.mu.Lock()
	w.fn = fn
	userID := w.userID
	w.mu.Unlock()
	fn(userID)
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.stopped = true
		w.fn = nil
	}
}

func (w *fakeWatcher) set(userID string) {
	w.mu.Lock()
	w.userID = userID
	fn := w.fn
	w.mu.Unlock()
	if fn != nil {
		fn(userID)
	}
}

func TestSequencerFollowsIdentity(t *testing.T) {
	clock := &manualClock{}
	s, rec := newTestSequencer(t, clock)
	w := &fakeWatcher{}

	require.NoError(t, s.Watch(w))
	assert.False(t, s.State().SignedIn)
	assert.ErrorIs(t, s.Advance(), ErrInactive)
	clock.Advance(10 * time.Second)
	assert.Equal(t, Intro, s.State().Phase)

	w.set("user-a")
	assert.True(t, s.State().SignedIn)
	assert.Len(t, rec.ofKind(EventReset), 1)
	clock.Advance(4 * time.Second)
	assert.Equal(t, BorderReveal, s.State().Phase)

	// Repeating the same user does not reset.
	w.set("user-a")
	assert.Len(t, rec.ofKind(EventReset), 1)

	w.set("")
	assert.False(t, s.State().SignedIn)
	assert.Equal(t, 0, clock.Pending())
	clock.Advance(10 * time.Second)
	assert.Equal(t, BorderReveal, s.State().Phase)

	w.set("user-a")
	st := s.State()
	assert.Equal(t, Intro, st.Phase)
	assert.False(t, st.BorderVisible)
	assert.Len(t, rec.ofKind(EventReset), 2)

	s.Close()
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.True(t, w.stopped)
}

func TestSequencerResetsOnUserSwitch(t *testing.T) {
	clock := &manualClock{}
	s, rec := newTestSequencer(t, clock)
	w := &fakeWatcher{userID: "user-a"}
	require.NoError(t, s.Watch(w))

	clock.Advance(6 * time.Second)
	require.Equal(t, ImageReveal, s.State().Phase)
	require.NoError(t, s.PickImage())
	require.NoError(t, s.BeginUpload())
	require.NoError(t, s.CompleteUpload("abcdefghijkl"))

	w.set("user-b")
	st := s.State()
	assert.Equal(t, Intro, st.Phase)
	assert.Equal(t, StepTypography, st.Step)
	assert.False(t, st.GlowArmed)
	assert.Empty(t, st.FileID)
	assert.True(t, st.SignedIn)
	assert.Len(t, rec.ofKind(EventReset), 2)

	clock.Advance(2 * time.Second)
	assert.Equal(t, Animating, s.State().Phase)
}

func TestSequencerRealClock(t *testing.T) {
	s := New(WithTimings(Timings{
		PhaseDwell:       time.Millisecond,
		IntroOverlay:     time.Millisecond,
		IntroOverlayTail: time.Millisecond,
		MorphOverlay:     time.Millisecond,
	}))
	defer s.Close()

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool {
		return s.State().Phase == ImageReveal
	}, time.Second, 5*time.Millisecond)
}

func TestStateJSON(t *testing.T) {
	b, err := json.Marshal(Event{Kind: EventPhase, State: State{Phase: BorderReveal, Step: StepMorph, BorderVisible: true}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"phase"`)
	assert.Contains(t, string(b), `"phase":"border"`)
	assert.Contains(t, string(b), `"step":1`)
	assert.NotContains(t, string(b), "fileId")
}
