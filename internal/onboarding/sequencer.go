package onboarding

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/logging"
)

var (
	// ErrClosed is returned by operations on a torn-down sequencer.
	ErrClosed = errors.New("onboarding: sequencer closed")
	// ErrInactive is returned while no session is running (not started, or
	// the identity went away).
	ErrInactive = errors.New("onboarding: no active session")
	// ErrNotReady is returned when the image affordance is not shown yet.
	ErrNotReady = errors.New("onboarding: image box not revealed")
)

// EventKind names what changed.
type EventKind string

const (
	EventPhase    EventKind = "phase"
	EventStep     EventKind = "step"
	EventOverlay  EventKind = "overlay"
	EventStage    EventKind = "stage"
	EventGlow     EventKind = "glow"
	EventReset    EventKind = "reset"
	EventUpload   EventKind = "upload"
	EventIdentity EventKind = "identity"
)

// State is a point-in-time snapshot of the sequencer. BorderVisible and
// ImageVisible are derived from Phase.
type State struct {
	Phase          Phase  `json:"phase"`
	Step           Step   `json:"step"`
	BorderVisible  bool   `json:"borderVisible"`
	ImageVisible   bool   `json:"imageVisible"`
	OverlayVisible bool   `json:"overlayVisible"`
	StageVisible   bool   `json:"stageVisible"`
	GlowArmed      bool   `json:"glowArmed"`
	Uploading      bool   `json:"uploading"`
	FileID         string `json:"fileId,omitempty"`
	UploadError    string `json:"uploadError,omitempty"`
	SignedIn       bool   `json:"signedIn"`
}

// Event is delivered to the listener after every change.
type Event struct {
	Kind  EventKind `json:"kind"`
	State State     `json:"state"`
}

// Listener receives events. It is called with the sequencer lock held and
// must not call back into the sequencer.
type Listener func(Event)

// IdentityWatcher reports the signed-in user. Watch calls fn with the current
// user id, empty when signed out, and again on every change until stop is
// called.
type IdentityWatcher interface {
	Watch(fn func(userID string)) (stop func())
}

// track is one cancellable timer chain. Bumping gen invalidates every
// callback scheduled under the previous value.
type track struct {
	gen   uint64
	timer Timer
}

func (t *track) cancel() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Sequencer owns one onboarding session.
type Sequencer struct {
	mu       sync.Mutex
	clock    Clock
	timings  Timings
	listener Listener
	log      logrus.FieldLogger

	phase       Phase
	step        Step
	introHold   bool
	morphHold   bool
	stage       bool
	glow        bool
	uploading   bool
	fileID      string
	uploadError string
	userID      string

	running bool
	closed  bool

	phaseTrack track
	introTrack track
	morphTrack track

	stopWatch func()
}

// Option configures a Sequencer.
type Option func(*Sequencer)

func WithClock(c Clock) Option { return func(s *Sequencer) { s.clock = c } }

func WithTimings(t Timings) Option { return func(s *Sequencer) { s.timings = t } }

func WithListener(l Listener) Option { return func(s *Sequencer) { s.listener = l } }

func WithLogger(l logrus.FieldLogger) Option { return func(s *Sequencer) { s.log = l } }

// New returns an idle sequencer at Intro. Call Start, Reset or Watch to run it.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		clock:   RealClock,
		timings: DefaultTimings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	return s
}

// State returns a snapshot.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Start runs the phase track from the current phase. Starting a running
// sequencer is a no-op.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.running {
		return nil
	}
	s.running = true
	s.emit(EventPhase)
	s.schedulePhase()
	return nil
}

// Reset cancels everything pending and restarts the session at Intro.
func (s *Sequencer) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.reset()
	return nil
}

// Advance skips the dwell of the current phase. It is a no-op at the
// terminal phase.
func (s *Sequencer) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.active(); err != nil {
		return err
	}
	if s.phase.Terminal() {
		return nil
	}
	s.phaseTrack.cancel()
	s.enter(s.phase + 1)
	return nil
}

// OnIntroAnimationComplete moves Step from Typography to Morph and runs the
// intro overlay: on now, stage shown after IntroOverlay, overlay off after a
// further IntroOverlayTail. Later calls are ignored.
func (s *Sequencer) OnIntroAnimationComplete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.active(); err != nil {
		return err
	}
	if s.step != StepTypography {
		return nil
	}
	s.step = StepMorph
	s.emit(EventStep)

	s.introTrack.cancel()
	s.setHold(&s.introHold, true)
	gen := s.introTrack.gen
	s.introTrack.timer = s.clock.AfterFunc(s.timings.IntroOverlay, func() {
		s.introStage(gen)
	})
	return nil
}

func (s *Sequencer) introStage(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.introTrack.gen {
		return
	}
	s.stage = true
	s.emit(EventStage)
	s.introTrack.timer = s.clock.AfterFunc(s.timings.IntroOverlayTail, func() {
		s.introTail(gen)
	})
}

func (s *Sequencer) introTail(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.introTrack.gen {
		return
	}
	s.introTrack.timer = nil
	s.setHold(&s.introHold, false)
}

// OnMorphComplete moves Step from Morph to MainInteractive and shows the
// overlay for MorphOverlay. It is ignored unless Step is Morph.
func (s *Sequencer) OnMorphComplete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.active(); err != nil {
		return err
	}
	if s.step != StepMorph {
		return nil
	}
	s.step = StepMainInteractive
	s.emit(EventStep)

	s.morphTrack.cancel()
	s.setHold(&s.morphHold, true)
	gen := s.morphTrack.gen
	s.morphTrack.timer = s.clock.AfterFunc(s.timings.MorphOverlay, func() {
		s.morphDone(gen)
	})
	return nil
}

func (s *Sequencer) morphDone(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.morphTrack.gen {
		return
	}
	s.morphTrack.timer = nil
	s.setHold(&s.morphHold, false)
}

// PickImage arms the first-touch glow. The glow stays armed until reset.
func (s *Sequencer) PickImage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	if s.glow {
		return nil
	}
	s.glow = true
	s.emit(EventGlow)
	return nil
}

// BeginUpload marks an upload round-trip as in flight.
func (s *Sequencer) BeginUpload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	s.uploading = true
	s.uploadError = ""
	s.emit(EventUpload)
	return nil
}

// CompleteUpload records the stored file id.
func (s *Sequencer) CompleteUpload(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	s.uploading = false
	s.uploadError = ""
	s.fileID = fileID
	s.emit(EventUpload)
	return nil
}

// FailUpload records a failed upload. Phase and the previous file id are
// left as they were.
func (s *Sequencer) FailUpload(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	s.uploading = false
	s.uploadError = message
	s.emit(EventUpload)
	return nil
}

// Watch follows w. Any new user resets and starts a session, including a
// switch from one user to another; signing out cancels all timers and holds
// the current state.
func (s *Sequencer) Watch(w IdentityWatcher) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	stop := w.Watch(s.identityChanged)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stop()
		return ErrClosed
	}
	prev := s.stopWatch
	s.stopWatch = stop
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
	return nil
}

func (s *Sequencer) identityChanged(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || userID == s.userID {
		return
	}
	s.userID = userID
	if userID != "" {
		s.log.WithField("user_id", userID).Debug("identity changed, restarting onboarding")
		s.reset()
		return
	}
	s.log.Debug("identity gone, holding onboarding")
	s.cancelAll()
	s.running = false
	s.emit(EventIdentity)
}

// Close tears the sequencer down. No callback changes state afterwards.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.running = false
	s.cancelAll()
	stop := s.stopWatch
	s.stopWatch = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (s *Sequencer) active() error {
	if s.closed {
		return ErrClosed
	}
	if !s.running {
		return ErrInactive
	}
	return nil
}

func (s *Sequencer) ready() error {
	if err := s.active(); err != nil {
		return err
	}
	if s.phase < BorderReveal {
		return ErrNotReady
	}
	return nil
}

func (s *Sequencer) reset() {
	s.cancelAll()
	s.phase = Intro
	s.step = StepTypography
	s.introHold = false
	s.morphHold = false
	s.stage = false
	s.glow = false
	s.uploading = false
	s.fileID = ""
	s.uploadError = ""
	s.running = true
	s.emit(EventReset)
	s.schedulePhase()
}

func (s *Sequencer) cancelAll() {
	s.phaseTrack.cancel()
	s.introTrack.cancel()
	s.morphTrack.cancel()
}

func (s *Sequencer) enter(p Phase) {
	s.phase = p
	s.log.WithField("phase", p).Debug("onboarding phase entered")
	s.emit(EventPhase)
	s.schedulePhase()
}

// schedulePhase arms the dwell timer for the current phase unless one is
// already pending.
func (s *Sequencer) schedulePhase() {
	if s.phase.Terminal() || s.phaseTrack.timer != nil {
		return
	}
	gen, from := s.phaseTrack.gen, s.phase
	s.phaseTrack.timer = s.clock.AfterFunc(s.timings.PhaseDwell, func() {
		s.phaseElapsed(gen, from)
	})
}

func (s *Sequencer) phaseElapsed(gen uint64, from Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.running || gen != s.phaseTrack.gen || s.phase != from {
		return
	}
	s.phaseTrack.timer = nil
	s.enter(from + 1)
}

// setHold updates one path's claim on the shared overlay and emits when the
// visible value changes.
func (s *Sequencer) setHold(hold *bool, on bool) {
	before := s.introHold || s.morphHold
	*hold = on
	if before != (s.introHold || s.morphHold) {
		s.emit(EventOverlay)
	}
}

func (s *Sequencer) snapshot() State {
	return State{
		Phase:          s.phase,
		Step:           s.step,
		BorderVisible:  s.phase >= BorderReveal,
		ImageVisible:   s.phase == ImageReveal,
		OverlayVisible: s.introHold || s.morphHold,
		StageVisible:   s.stage,
		GlowArmed:      s.glow,
		Uploading:      s.uploading,
		FileID:         s.fileID,
		UploadError:    s.uploadError,
		SignedIn:       s.userID != "",
	}
}

func (s *Sequencer) emit(kind EventKind) {
	if s.listener == nil {
		return
	}
	s.listener(Event{Kind: kind, State: s.snapshot()})
}
