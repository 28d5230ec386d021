// Package onboarding drives the timed onboarding choreography: a coarse Phase
// track advanced by dwell timers and a finer Step track advanced by client
// animation callbacks.
package onboarding

import (
	"fmt"
	"strconv"
)

// Phase is the coarse onboarding state. Phases only move forward, except on
// reset which returns to Intro.
type Phase int

const (
	Intro Phase = iota
	Animating
	BorderReveal
	ImageReveal
)

var phaseNames = [...]string{"intro", "animating", "border", "image"}

func (p Phase) String() string {
	if p < Intro || p > ImageReveal {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Terminal reports whether p has no successor.
func (p Phase) Terminal() bool { return p == ImageReveal }

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	if p < Intro || p > ImageReveal {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// Step is the secondary animation counter layered over the early phases.
type Step int

const (
	StepTypography Step = iota
	StepMorph
	StepMainInteractive
)

var stepNames = [...]string{"typography", "morph", "main"}

func (s Step) String() string {
	if s < StepTypography || s > StepMainInteractive {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// MarshalJSON encodes the step as its number, the form clients switch on.
func (s Step) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(s))), nil
}
