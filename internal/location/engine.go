package location

import (
	"sync"

	"github.com/sirupsen/logrus"

	"attendance_gate/internal/clock"
)

// Status is the externally visible location trust state.
type Status string

const (
	StatusChecking   Status = "checking"
	StatusAllowed    Status = "allowed"
	StatusDenied     Status = "denied"
	StatusOutOfRange Status = "out_of_range"
)

// TrustState is the per-session mutable state behind the engine.
type TrustState struct {
	ConsecutiveValidReadings int
	StagnantCoordCount       int
	StagnantAccuracyCount    int
	History                  *History
	Status                   Status
}

// Snapshot is an immutable view of the engine for callers.
type Snapshot struct {
	Status                   Status  `json:"status"`
	Reason                   Reason  `json:"reason,omitempty"`
	ConsecutiveValidReadings int     `json:"consecutive_valid_readings"`
	Position                 *Sample `json:"position,omitempty"`
	Zones                    []Rule  `json:"zones"`
	Frozen                   bool    `json:"frozen"`
}

// Observer is notified after every evaluated sample or sensor error.
type Observer func(Snapshot, Verdict)

// Engine combines the sample filter and the geofence matcher into a single
// checking/allowed/denied/out_of_range status. It is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	clock    clock.Clock
	filter   *Filter
	rules    []Rule
	state    TrustState
	position *Sample
	zones    []Rule
	reason   Reason
	frozen   bool
	observer Observer
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func NewEngine(cfg Config, rules []Rule, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		clock:  clock.Real(),
		filter: NewFilter(cfg),
		rules:  rules,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resetLocked()
	return e
}

// SetRules replaces the zone set. The next sample is matched against it.
func (e *Engine) SetRules(rules []Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
}

// Observe runs one fix through the filter and the matcher.
func (e *Engine) Observe(s Sample) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frozen {
		return e.snapshotLocked()
	}

	v := e.filter.Evaluate(e.clock.Now(), s, &e.state)
	switch {
	case !v.Trusted:
		e.state.Status = StatusDenied
		e.reason = v.Reason
		e.position = nil
		e.zones = nil
	case e.state.ConsecutiveValidReadings < e.cfg.MinValidReadings:
		// An unproven signal never flips to allowed, even inside a zone.
		e.state.Status = StatusChecking
		e.reason = ""
		pos := s
		e.position = &pos
		e.zones = nil
	default:
		pos := s
		e.position = &pos
		e.reason = ""
		e.zones = MatchRules(s.Latitude, s.Longitude, e.rules)
		if len(e.zones) == 0 {
			e.state.Status = StatusOutOfRange
		} else {
			e.state.Status = StatusAllowed
		}
	}

	snap := e.snapshotLocked()
	logrus.WithFields(logrus.Fields{
		"status":      snap.Status,
		"reason":      v.Reason,
		"valid_count": e.state.ConsecutiveValidReadings,
		"zones":       len(snap.Zones),
		"accuracy_m":  s.AccuracyMeters,
	}).Debug("Location sample evaluated.")

	if e.observer != nil {
		e.observer(snap, v)
	}
	return snap
}

// ObserveError records a sensor failure (permission denied, timeout). The
// engine goes straight to denied and forgets its progress.
func (e *Engine) ObserveError(err error) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frozen {
		return e.snapshotLocked()
	}

	e.resetLocked()
	e.state.Status = StatusDenied
	e.reason = ReasonSensorError

	logrus.WithError(err).Warn("Location sensor error, status denied.")

	snap := e.snapshotLocked()
	if e.observer != nil {
		e.observer(snap, untrusted(ReasonSensorError))
	}
	return snap
}

// Reset returns the engine to checking with empty history, as on a new
// watch session.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frozen = false
	e.resetLocked()
}

// Freeze pins the status at allowed and ignores further samples. Used once
// the day's attendance already exists.
func (e *Engine) Freeze() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frozen = true
	e.state.Status = StatusAllowed
	e.reason = ""
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) resetLocked() {
	e.state = TrustState{
		History: NewHistory(e.cfg.StabilityWindow),
		Status:  StatusChecking,
	}
	e.position = nil
	e.zones = nil
	e.reason = ""
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:                   e.state.Status,
		Reason:                   e.reason,
		ConsecutiveValidReadings: e.state.ConsecutiveValidReadings,
		Zones:                    append([]Rule(nil), e.zones...),
		Frozen:                   e.frozen,
	}
	if e.position != nil {
		pos := *e.position
		snap.Position = &pos
	}
	return snap
}
