package liveness

import (
	"errors"
	"time"
)

// Challenge is one head-pose action the subject must perform.
type Challenge string

const (
	TurnLeft  Challenge = "turn_left"
	TurnRight Challenge = "turn_right"
	Nod       Challenge = "nod"
	NodUp     Challenge = "nod_up"
	NodDown   Challenge = "nod_down"
)

// ThreeWay and FourWay are the two supported challenge pools.
var (
	ThreeWay = []Challenge{TurnLeft, TurnRight, Nod}
	FourWay  = []Challenge{TurnLeft, TurnRight, NodUp, NodDown}
)

// ParseChallengeSet maps a config value ("three" or "four") to a pool.
func ParseChallengeSet(name string) ([]Challenge, error) {
	switch name {
	case "", "three", "3":
		return ThreeWay, nil
	case "four", "4":
		return FourWay, nil
	}
	return nil, errors.New("liveness: unknown challenge set " + name)
}

func (c Challenge) horizontal() bool { return c == TurnLeft || c == TurnRight }

// Point is a landmark position in camera-image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Descriptor is the face embedding produced by the detector.
type Descriptor []float32

// Detection is one frame's detector output for the tracked face.
type Detection struct {
	Nose       Point      `json:"nose"`
	FaceWidth  float64    `json:"faceWidth"`
	Descriptor Descriptor `json:"descriptor,omitempty"`
}

// Frame is one tick of input. A nil Detection means no face was found.
type Frame struct {
	At        time.Time
	Detection *Detection
}

// Mode selects between enrollment and identity verification.
type Mode string

const (
	ModeRegister Mode = "register"
	ModeVerify   Mode = "verify"
)

// StateTag is the position of a session in the challenge flow.
type StateTag string

const (
	StateInitializing       StateTag = "initializing"
	StateAwaitingStableFace StateTag = "awaiting_stable_face"
	StateAwaitingMove       StateTag = "awaiting_move"
	StateAwaitingReturn     StateTag = "awaiting_return"
	StateTransitioning      StateTag = "transitioning"
	StateVerifying          StateTag = "verifying"
	StatePassed             StateTag = "passed"
	StateFailed             StateTag = "failed"
)

// Terminal reports whether no further frames are consumed.
func (t StateTag) Terminal() bool { return t == StatePassed || t == StateFailed }

// midChallenge reports whether losing the face counts toward a reset.
func (t StateTag) midChallenge() bool {
	return t == StateAwaitingMove || t == StateAwaitingReturn || t == StateTransitioning
}

// Failure reasons. These are shown to the user, so they never carry scores.
const (
	ReasonTimeout           = "timeout"
	ReasonFaceMismatch      = "face mismatch"
	ReasonNoEnrolledFace    = "no enrolled face"
	ReasonCameraUnavailable = "camera unavailable"
	ReasonCancelled         = "cancelled"
)

// Baseline is the reference head position a challenge is measured from.
type Baseline struct {
	Nose      Point
	FaceWidth float64
}

// State is the full liveness session state. Machine.Step never mutates its
// argument; it returns the next value.
type State struct {
	Tag                     StateTag
	Mode                    Mode
	Sequence                []Challenge
	Step                    int
	Baseline                *Baseline
	ConsecutiveActionFrames int
	NoFaceFrames            int
	// ResumeAt is when a transitioning session may re-baseline.
	ResumeAt time.Time
	// Captured is the descriptor taken on the final challenge frame, or the
	// first face in register mode.
	Captured Descriptor
	Reason   string
}

// Phase is the challenge sub-phase name used by clients.
func (s State) Phase() string {
	switch s.Tag {
	case StateAwaitingMove:
		return "waiting_for_move"
	case StateAwaitingReturn:
		return "waiting_for_return"
	}
	return ""
}

// Current returns the active challenge, if any.
func (s State) Current() (Challenge, bool) {
	if s.Step < 0 || s.Step >= len(s.Sequence) {
		return "", false
	}
	return s.Sequence[s.Step], true
}

// Config holds the liveness tunables.
type Config struct {
	Challenges                []Challenge
	NumChallenges             int
	RequiredConsecutiveFrames int
	// TurnThreshold and NodThreshold are fractions of the baseline face width.
	TurnThreshold float64
	NodThreshold  float64
	// ReturnRatio is the share of the move threshold the head must come back
	// under to finish a challenge.
	ReturnRatio          float64
	NoFaceResetThreshold int
	TransitionPause      time.Duration
	MatchDistance        float64
	// MirroredInput flips the horizontal axis for clients that send selfie
	// (mirrored) coordinates.
	MirroredInput bool
	TickInterval  time.Duration
	Timeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		Challenges:                ThreeWay,
		NumChallenges:             2,
		RequiredConsecutiveFrames: 3,
		TurnThreshold:             0.16,
		NodThreshold:              0.07,
		ReturnRatio:               0.5,
		NoFaceResetThreshold:      10,
		TransitionPause:           750 * time.Millisecond,
		MatchDistance:             0.45,
		TickInterval:              150 * time.Millisecond,
		Timeout:                   25 * time.Second,
	}
}

// Rand is the random source used to draw challenges. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	IntN(n int) int
}

// Result is the single terminal outcome of a session.
type Result struct {
	Mode       Mode       `json:"mode"`
	Passed     bool       `json:"passed"`
	Reason     string     `json:"reason,omitempty"`
	Descriptor Descriptor `json:"-"`
}

// Progress is what a client renders while a session runs.
type Progress struct {
	State       StateTag `json:"state"`
	Phase       string   `json:"phase,omitempty"`
	Instruction string   `json:"instruction"`
	// Fraction is the share of the time budget left, from 1 down to 0.
	Fraction float64 `json:"fraction"`
	Step     int     `json:"step"`
	Total    int     `json:"total"`
}

// ErrFrameNotReady is returned by a Detector when no new frame has arrived
// since the last call. The tick is skipped without touching the state.
var ErrFrameNotReady = errors.New("liveness: frame not ready")
