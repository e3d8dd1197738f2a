package location

import (
	"math"
	"time"
)

// MockPolicy decides whether a platform mock-location flag disqualifies a fix.
type MockPolicy string

const (
	MockPolicyReject MockPolicy = "reject"
	MockPolicyIgnore MockPolicy = "ignore"
)

// Reason names why a sample was not trusted.
type Reason string

const (
	ReasonMockLocation        Reason = "mock_location"
	ReasonImplausibleAccuracy Reason = "implausible_accuracy"
	ReasonStaleFix            Reason = "stale_fix"
	ReasonStagnantSignal      Reason = "stagnant_signal"
	ReasonSensorError         Reason = "sensor_error"
)

// Config carries the location trust tunables.
type Config struct {
	MinAccuracyMeters  float64
	MaxSampleAge       time.Duration
	StabilityThreshold int
	StabilityWindow    int
	MinValidReadings   int
	MockPolicy         MockPolicy
}

func DefaultConfig() Config {
	return Config{
		MinAccuracyMeters:  1,
		MaxSampleAge:       5 * time.Second,
		StabilityThreshold: 10,
		StabilityWindow:    10,
		MinValidReadings:   3,
		MockPolicy:         MockPolicyReject,
	}
}

// Verdict is the filter outcome for one sample.
type Verdict struct {
	Trusted bool   `json:"trusted"`
	Reason  Reason `json:"reason,omitempty"`
}

func untrusted(r Reason) Verdict { return Verdict{Trusted: false, Reason: r} }

// Filter classifies raw fixes. Cheap static checks run before the stateful
// behavioral check; the first failure wins.
type Filter struct {
	cfg Config
}

func NewFilter(cfg Config) *Filter {
	return &Filter{cfg: cfg}
}

// Evaluate classifies s against the rolling state and updates its counters.
// A sample that survives the static checks is pushed onto st.History.
func (f *Filter) Evaluate(now time.Time, s Sample, st *TrustState) Verdict {
	v := f.evaluate(now, s, st)
	if v.Trusted {
		st.ConsecutiveValidReadings++
	} else {
		st.ConsecutiveValidReadings = 0
	}
	return v
}

func (f *Filter) evaluate(now time.Time, s Sample, st *TrustState) Verdict {
	if s.Mocked && f.cfg.MockPolicy != MockPolicyIgnore {
		return untrusted(ReasonMockLocation)
	}
	if math.IsNaN(s.AccuracyMeters) || math.IsInf(s.AccuracyMeters, 0) || s.AccuracyMeters < f.cfg.MinAccuracyMeters {
		return untrusted(ReasonImplausibleAccuracy)
	}
	if now.Sub(s.CapturedAt) > f.cfg.MaxSampleAge {
		return untrusted(ReasonStaleFix)
	}

	if prev, ok := st.History.Latest(); ok {
		if s.sameCoordinates(prev) {
			st.StagnantCoordCount++
		} else {
			st.StagnantCoordCount = 0
		}
		if s.sameAccuracy(prev) {
			st.StagnantAccuracyCount++
		} else {
			st.StagnantAccuracyCount = 0
		}
	}
	st.History.Push(s)

	if st.StagnantCoordCount >= f.cfg.StabilityThreshold || st.StagnantAccuracyCount >= f.cfg.StabilityThreshold {
		return untrusted(ReasonStagnantSignal)
	}
	return Verdict{Trusted: true}
}
