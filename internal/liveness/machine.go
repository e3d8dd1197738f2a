package liveness

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
)

// Machine is the pure challenge-response transition function. It holds only
// configuration and injected capabilities, never session state, so one
// Machine can serve every session.
type Machine struct {
	cfg        Config
	rand       Rand
	comparator Comparator
}

func NewMachine(cfg Config, r Rand, cmp Comparator) *Machine {
	if cfg.NumChallenges > len(cfg.Challenges) {
		cfg.NumChallenges = len(cfg.Challenges)
	}
	if r == nil {
		r = globalRand{}
	}
	if cmp == nil {
		cmp = EuclideanComparator{}
	}
	return &Machine{cfg: cfg, rand: r, comparator: cmp}
}

func (m *Machine) Config() Config { return m.cfg }

// globalRand draws from the runtime-seeded math/rand/v2 source.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Start returns the initial state for a new session.
func (m *Machine) Start(mode Mode) State {
	return State{Tag: StateInitializing, Mode: mode}
}

// Step consumes one frame and returns the next state. Terminal and verifying
// states are returned unchanged.
func (m *Machine) Step(st State, f Frame) State {
	if st.Tag.Terminal() || st.Tag == StateVerifying {
		return st
	}
	if st.Tag == StateInitializing {
		st.Tag = StateAwaitingStableFace
	}

	d := f.Detection
	if d == nil || d.FaceWidth <= 0 {
		return m.noFace(st)
	}
	st.NoFaceFrames = 0

	if st.Mode == ModeRegister {
		if len(d.Descriptor) == 0 {
			return st
		}
		st.Tag = StatePassed
		st.Captured = cloneDescriptor(d.Descriptor)
		return st
	}

	switch st.Tag {
	case StateAwaitingStableFace:
		st.Baseline = &Baseline{Nose: d.Nose, FaceWidth: d.FaceWidth}
		if len(st.Sequence) == 0 {
			st.Sequence = m.draw()
			st.Step = 0
		}
		st.ConsecutiveActionFrames = 0
		st.Tag = StateAwaitingMove

	case StateAwaitingMove:
		if st.Baseline == nil {
			return m.restart(st)
		}
		if m.pastThreshold(st, d.Nose) {
			st.ConsecutiveActionFrames++
		} else {
			st.ConsecutiveActionFrames = 0
		}
		if st.ConsecutiveActionFrames >= m.cfg.RequiredConsecutiveFrames {
			st.ConsecutiveActionFrames = 0
			st.Tag = StateAwaitingReturn
		}

	case StateAwaitingReturn:
		if st.Baseline == nil {
			return m.restart(st)
		}
		if m.nearBaseline(st, d.Nose) {
			st.ConsecutiveActionFrames++
		} else {
			st.ConsecutiveActionFrames = 0
		}
		if st.ConsecutiveActionFrames < m.cfg.RequiredConsecutiveFrames {
			break
		}
		st.ConsecutiveActionFrames = 0
		st.Step++
		if st.Step >= len(st.Sequence) {
			st.Tag = StateVerifying
			st.Captured = cloneDescriptor(d.Descriptor)
			break
		}
		st.Tag = StateTransitioning
		st.ResumeAt = f.At.Add(m.cfg.TransitionPause)

	case StateTransitioning:
		if f.At.Before(st.ResumeAt) {
			break
		}
		// Re-baseline where the head actually is now, not where it started.
		st.Baseline = &Baseline{Nose: d.Nose, FaceWidth: d.FaceWidth}
		st.ConsecutiveActionFrames = 0
		st.ResumeAt = time.Time{}
		st.Tag = StateAwaitingMove
	}
	return st
}

// Verify compares the captured descriptor against the enrolled one and
// moves a verifying state to passed or failed.
func (m *Machine) Verify(st State, enrolled Descriptor) State {
	if st.Tag != StateVerifying {
		return st
	}
	if len(enrolled) == 0 {
		return fail(st, ReasonNoEnrolledFace)
	}

	match := m.comparator.BestMatch(st.Captured, enrolled)
	logrus.WithFields(logrus.Fields{
		"label":    match.Label,
		"distance": match.Distance,
	}).Debug("Liveness face comparison.")

	if match.Label == LabelUnknown || !(match.Distance < m.cfg.MatchDistance) {
		return fail(st, ReasonFaceMismatch)
	}
	st.Tag = StatePassed
	return st
}

func fail(st State, reason string) State {
	st.Tag = StateFailed
	st.Reason = reason
	return st
}

func (m *Machine) noFace(st State) State {
	// Any gap breaks the debounce run.
	st.ConsecutiveActionFrames = 0
	if !st.Tag.midChallenge() {
		return st
	}
	st.NoFaceFrames++
	if st.NoFaceFrames >= m.cfg.NoFaceResetThreshold {
		logrus.WithField("no_face_frames", st.NoFaceFrames).Debug("Face lost mid-challenge, restarting liveness sequence.")
		return m.restart(st)
	}
	return st
}

// restart drops the baseline and the drawn sequence and waits for a stable
// face again.
func (m *Machine) restart(st State) State {
	return State{Tag: StateAwaitingStableFace, Mode: st.Mode}
}

// draw picks NumChallenges distinct challenges without replacement.
func (m *Machine) draw() []Challenge {
	pool := append([]Challenge(nil), m.cfg.Challenges...)
	seq := make([]Challenge, 0, m.cfg.NumChallenges)
	for i := 0; i < m.cfg.NumChallenges && len(pool) > 0; i++ {
		j := m.rand.IntN(len(pool))
		seq = append(seq, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}
	return seq
}

// displacement returns the nose offset from baseline in un-mirrored image
// space: a subject's left turn is +x and a downward nod is +y.
func (m *Machine) displacement(st State, nose Point) (dx, dy float64) {
	dx = nose.X - st.Baseline.Nose.X
	dy = nose.Y - st.Baseline.Nose.Y
	if m.cfg.MirroredInput {
		dx = -dx
	}
	return dx, dy
}

func (m *Machine) thresholds(st State) (turn, nod float64) {
	return st.Baseline.FaceWidth * m.cfg.TurnThreshold, st.Baseline.FaceWidth * m.cfg.NodThreshold
}

func (m *Machine) pastThreshold(st State, nose Point) bool {
	c, ok := st.Current()
	if !ok {
		return false
	}
	dx, dy := m.displacement(st, nose)
	turn, nod := m.thresholds(st)
	switch c {
	case TurnLeft:
		return dx > turn
	case TurnRight:
		return dx < -turn
	case Nod, NodDown:
		return dy > nod
	case NodUp:
		return dy < -nod
	}
	return false
}

func (m *Machine) nearBaseline(st State, nose Point) bool {
	c, ok := st.Current()
	if !ok {
		return false
	}
	dx, dy := m.displacement(st, nose)
	turn, nod := m.thresholds(st)
	if c.horizontal() {
		return math.Abs(dx) < turn*m.cfg.ReturnRatio
	}
	return math.Abs(dy) < nod*m.cfg.ReturnRatio
}

func cloneDescriptor(d Descriptor) Descriptor {
	if d == nil {
		return nil
	}
	return append(Descriptor(nil), d...)
}
