package onboarding

import "time"

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The sequencer never reads wall time directly.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock schedules on the runtime timer heap.
var RealClock Clock = realClock{}

// Timings are the dwell and overlay durations of the two tracks.
type Timings struct {
	PhaseDwell       time.Duration
	IntroOverlay     time.Duration
	IntroOverlayTail time.Duration
	MorphOverlay     time.Duration
}

// DefaultTimings match the client animation lengths.
func DefaultTimings() Timings {
	return Timings{
		PhaseDwell:       2 * time.Second,
		IntroOverlay:     time.Second,
		IntroOverlayTail: 500 * time.Millisecond,
		MorphOverlay:     2 * time.Second,
	}
}
