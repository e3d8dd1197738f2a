package location

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"attendance_gate/internal/clock"
)

type EngineSuite struct {
	suite.Suite
	clock  *clock.FakeClock
	engine *Engine
	seq    int
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

var hq = Rule{ID: "hq", ZoneName: "Head Office", Latitude: -6.2001, Longitude: 106.8166, RadiusMeters: 150}

func (s *EngineSuite) SetupTest() {
	s.clock = clock.Fake(now)
	s.engine = NewEngine(DefaultConfig(), []Rule{hq}, WithClock(s.clock))
	s.seq = 0
}

// fresh returns a fix near (lat, lon) with a little receiver jitter so
// consecutive readings never repeat exactly.
func (s *EngineSuite) fresh(lat, lon float64) Sample {
	s.seq++
	return Sample{
		Latitude:       lat + float64(s.seq)*1e-7,
		Longitude:      lon,
		AccuracyMeters: 6 + float64(s.seq)*0.1,
		CapturedAt:     s.clock.Now().Add(-200 * time.Millisecond),
	}
}

func (s *EngineSuite) TestStartsChecking() {
	snap := s.engine.Snapshot()
	s.Equal(StatusChecking, snap.Status)
	s.Empty(snap.Zones)
	s.Nil(snap.Position)
}

func (s *EngineSuite) TestRequiresMinValidReadingsBeforeAllowed() {
	snap := s.engine.Observe(s.fresh(hq.Latitude, hq.Longitude))
	s.Equal(StatusChecking, snap.Status, "one in-zone fix is not enough")
	s.Empty(snap.Zones)

	snap = s.engine.Observe(s.fresh(hq.Latitude, hq.Longitude))
	s.Equal(StatusChecking, snap.Status)

	snap = s.engine.Observe(s.fresh(hq.Latitude, hq.Longitude))
	s.Equal(StatusAllowed, snap.Status)
	s.Require().Len(snap.Zones, 1)
	s.Equal("Head Office", snap.Zones[0].ZoneName)
	s.Equal(3, snap.ConsecutiveValidReadings)
	s.NotNil(snap.Position)
}

func (s *EngineSuite) TestUntrustedSampleDeniesAndResetsCount() {
	for i := 0; i < 3; i++ {
		s.engine.Observe(s.fresh(hq.Latitude, hq.Longitude))
	}
	s.Require().Equal(StatusAllowed, s.engine.Snapshot().Status)

	bad := s.fresh(hq.Latitude, hq.Longitude)
	bad.AccuracyMeters = 0.3
	snap := s.engine.Observe(bad)
	s.Equal(StatusDenied, snap.Status)
	s.Equal(ReasonImplausibleAccuracy, snap.Reason)
	s.Nil(snap.Position)
	s.Empty(snap.Zones)
	s.Zero(snap.ConsecutiveValidReadings)

	snap = s.engine.Observe(s.fresh(hq.Latitude, hq.Longitude))
	s.Equal(StatusChecking, snap.Status, "must re-earn the reading threshold")
}

func (s *EngineSuite) TestOutOfRange() {
	for i := 0; i < 3; i++ {
		s.engine.Observe(s.fresh(-6.9175, 107.6191))
	}
	snap := s.engine.Snapshot()
	s.Equal(StatusOutOfRange, snap.Status)
	s.Empty(snap.Zones)
}

func (s *EngineSuite) TestSensorErrorDeniesImmediately() {
	s.engine.Observe(s.fresh(hq.Latitude, hq.Longitude))
	s.engine.Observe(s.fresh(hq.Latitude, hq.Longitude))

	snap := s.engine.ObserveError(errors.New("permission denied"))
	s.Equal(StatusDenied, snap.Status)
	s.Equal(ReasonSensorError, snap.Reason)
	s.Zero(snap.ConsecutiveValidReadings)
}

func (s *EngineSuite) TestFreezeIgnoresSamples() {
	s.engine.Freeze()
	bad := s.fresh(hq.Latitude, hq.Longitude)
	bad.Mocked = true

	snap := s.engine.Observe(bad)
	s.Equal(StatusAllowed, snap.Status)
	s.True(snap.Frozen)

	s.engine.Reset()
	snap = s.engine.Snapshot()
	s.Equal(StatusChecking, snap.Status)
	s.False(snap.Frozen)
}

func (s *EngineSuite) TestObserverSeesEveryVerdict() {
	var verdicts []Verdict
	e := NewEngine(DefaultConfig(), []Rule{hq}, WithClock(s.clock), WithObserver(func(_ Snapshot, v Verdict) {
		verdicts = append(verdicts, v)
	}))

	e.Observe(s.fresh(hq.Latitude, hq.Longitude))
	stale := s.fresh(hq.Latitude, hq.Longitude)
	stale.CapturedAt = s.clock.Now().Add(-time.Minute)
	e.Observe(stale)

	s.Require().Len(verdicts, 2)
	s.True(verdicts[0].Trusted)
	s.Equal(ReasonStaleFix, verdicts[1].Reason)
}

// A perfectly static emulator feeding the same in-zone fix gets allowed
// briefly, then trips the stagnation check.
func TestEngine_StaticEmulatorIsCaught(t *testing.T) {
	c := clock.Fake(now)
	e := NewEngine(DefaultConfig(), []Rule{hq}, WithClock(c))

	fake := Sample{Latitude: hq.Latitude, Longitude: hq.Longitude, AccuracyMeters: 5}
	var snap Snapshot
	for i := 0; i < 11; i++ {
		fake.CapturedAt = c.Now()
		snap = e.Observe(fake)
		c.Advance(time.Second)
	}
	require.Equal(t, StatusDenied, snap.Status)
	assert.Equal(t, ReasonStagnantSignal, snap.Reason)
}

// A 0.3 m accuracy fix is denied immediately and no zone is ever offered.
func TestEngine_SubMeterAccuracyNeverOffersZone(t *testing.T) {
	c := clock.Fake(now)
	e := NewEngine(DefaultConfig(), []Rule{hq}, WithClock(c))

	for i := 0; i < 5; i++ {
		snap := e.Observe(Sample{
			Latitude:       hq.Latitude + float64(i)*1e-6,
			Longitude:      hq.Longitude,
			AccuracyMeters: 0.3,
			CapturedAt:     c.Now(),
		})
		require.Equal(t, StatusDenied, snap.Status)
		require.Empty(t, snap.Zones)
	}
}
