package liveness

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"attendance_gate/internal/clock"
)

// scriptDetector replays a fixed list of detections, then reports that no
// new frame is ready.
type scriptDetector struct {
	mu     sync.Mutex
	frames []*Detection
	err    error
	calls  int
	closed int
}

func (d *scriptDetector) Detect(context.Context) (*Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	if len(d.frames) == 0 {
		return nil, ErrFrameNotReady
	}
	f := d.frames[0]
	d.frames = d.frames[1:]
	return f, nil
}

func (d *scriptDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *scriptDetector) stats() (calls, closed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls, d.closed
}

type SessionSuite struct {
	suite.Suite
	clock    *clock.FakeClock
	machine  *Machine
	detector *scriptDetector
	results  []Result
	mu       sync.Mutex
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.clock = clock.Fake(t0)
	s.machine = NewMachine(DefaultConfig(), fixedRand(0), nil)
	s.detector = &scriptDetector{}
	s.results = nil
}

func (s *SessionSuite) newSession(mode Mode, opts ...SessionOption) *Session {
	opts = append([]SessionOption{
		WithSessionClock(s.clock),
		WithOnDone(func(r Result) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.results = append(s.results, r)
		}),
	}, opts...)
	return NewSession(s.machine, mode, s.detector, opts...)
}

func (s *SessionSuite) doneCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// tick advances the fake clock one detection interval and runs one tick by
// hand. Nobody reads the ticker channel, so ticks never run twice.
func (s *SessionSuite) tick(sess *Session, n int) {
	for i := 0; i < n; i++ {
		s.clock.Advance(150 * time.Millisecond)
		sess.Tick(context.Background())
	}
}

func (s *SessionSuite) passingScript() []*Detection {
	var frames []*Detection
	frames = append(frames, face(320, 240))
	frames = append(frames, repeat(face(360, 240), 3)...)
	frames = append(frames, repeat(face(320, 240), 3)...)
	// The pause is 750ms; the fifth tick lands on the deadline and re-baselines.
	frames = append(frames, repeat(face(320, 240), 5)...)
	frames = append(frames, repeat(face(280, 240), 3)...)
	frames = append(frames, repeat(face(320, 240), 3)...)
	return frames
}

func (s *SessionSuite) TestVerifyPassesExactlyOnce() {
	s.detector.frames = s.passingScript()
	sess := s.newSession(ModeVerify, WithEnrolled(enrolledFace))
	_, _, ok := sess.arm(context.Background())
	s.Require().True(ok)

	s.tick(sess, len(s.passingScript()))

	res, ok := sess.Result()
	s.Require().True(ok)
	s.True(res.Passed)
	s.Equal(ModeVerify, res.Mode)
	s.Equal(1, s.doneCount())
	s.Zero(s.clock.Pending(), "ticker and watchdog are stopped, not just guarded")
	_, closed := s.detector.stats()
	s.Equal(1, closed)

	select {
	case <-sess.Done():
	default:
		s.Fail("Done not closed")
	}

	// The watchdog firing late must not produce a second outcome.
	sess.expire()
	s.clock.Advance(time.Minute)
	s.Equal(1, s.doneCount())
	res, _ = sess.Result()
	s.True(res.Passed)
}

func (s *SessionSuite) TestWatchdogTimesOut() {
	s.detector.frames = repeat(face(320, 240), 3)
	sess := s.newSession(ModeVerify, WithEnrolled(enrolledFace))
	sess.arm(context.Background())
	s.tick(sess, 3)

	s.clock.Advance(25 * time.Second)

	res, ok := sess.Result()
	s.Require().True(ok)
	s.False(res.Passed)
	s.Equal(ReasonTimeout, res.Reason)
	s.Equal(1, s.doneCount())
	s.Zero(s.clock.Pending())

	calls, closed := s.detector.stats()
	sess.Tick(context.Background())
	after, _ := s.detector.stats()
	s.Equal(calls, after, "no detection after a terminal state")
	s.Equal(1, closed)
	s.Equal(StateFailed, sess.State().Tag)
}

func (s *SessionSuite) TestWatchdogAppliesToRegisterMode() {
	sess := s.newSession(ModeRegister)
	sess.arm(context.Background())
	s.clock.Advance(25 * time.Second)

	res, ok := sess.Result()
	s.Require().True(ok)
	s.Equal(ReasonTimeout, res.Reason)
}

func (s *SessionSuite) TestRegisterReturnsDescriptor() {
	s.detector.frames = []*Detection{nil, face(1, 1)}
	sess := s.newSession(ModeRegister)
	sess.arm(context.Background())
	s.tick(sess, 2)

	res, ok := sess.Result()
	s.Require().True(ok)
	s.True(res.Passed)
	s.Equal(face(0, 0).Descriptor, res.Descriptor)
}

func (s *SessionSuite) TestMismatchFails() {
	frames := s.passingScript()
	for _, f := range frames {
		f.Descriptor = Descriptor{0.9, -0.9, 0.9, -0.9}
	}
	s.detector.frames = frames
	sess := s.newSession(ModeVerify, WithEnrolled(enrolledFace))
	sess.arm(context.Background())
	s.tick(sess, len(frames))

	res, ok := sess.Result()
	s.Require().True(ok)
	s.False(res.Passed)
	s.Equal(ReasonFaceMismatch, res.Reason)
	s.Equal(1, s.doneCount())
}

func (s *SessionSuite) TestFrameNotReadySkipsTick() {
	sess := s.newSession(ModeVerify)
	sess.arm(context.Background())
	s.tick(sess, 4)

	s.Equal(StateInitializing, sess.State().Tag)
	_, ok := sess.Result()
	s.False(ok)
}

func (s *SessionSuite) TestDetectorErrorIsTerminal() {
	s.detector.err = errors.New("NotAllowedError")
	sess := s.newSession(ModeVerify)
	sess.arm(context.Background())
	s.tick(sess, 1)

	res, ok := sess.Result()
	s.Require().True(ok)
	s.Equal(ReasonCameraUnavailable, res.Reason)
	s.Zero(s.clock.Pending())
}

func (s *SessionSuite) TestCancelReleasesEverything() {
	sess := s.newSession(ModeVerify)
	sess.arm(context.Background())
	sess.Cancel()
	sess.Cancel()

	res, ok := sess.Result()
	s.Require().True(ok)
	s.Equal(ReasonCancelled, res.Reason)
	s.Equal(1, s.doneCount())
	s.Zero(s.clock.Pending())
	_, closed := s.detector.stats()
	s.Equal(1, closed)
}

func (s *SessionSuite) TestProgressFraction() {
	s.detector.frames = []*Detection{face(320, 240)}
	sess := s.newSession(ModeVerify)
	sess.arm(context.Background())
	s.tick(sess, 1)
	s.clock.Advance(5*time.Second - 150*time.Millisecond)

	p := sess.Progress()
	s.Equal(StateAwaitingMove, p.State)
	s.Equal("Turn your head to the left.", p.Instruction)
	s.InDelta(0.8, p.Fraction, 1e-9)
	s.Equal(0, p.Step)
	s.Equal(2, p.Total)
}

func (s *SessionSuite) TestOnProgressSeesEachFrame() {
	var seen []StateTag
	s.detector.frames = []*Detection{face(320, 240), face(360, 240)}
	sess := s.newSession(ModeVerify, WithOnProgress(func(p Progress) { seen = append(seen, p.State) }))
	sess.arm(context.Background())
	s.tick(sess, 3)

	s.Equal([]StateTag{StateAwaitingMove, StateAwaitingMove}, seen)
}

// blockingDetector parks inside Detect until released.
type blockingDetector struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (d *blockingDetector) Detect(context.Context) (*Detection, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	d.entered <- struct{}{}
	<-d.release
	return nil, nil
}

func TestSession_TickWhileBusyExitsEarly(t *testing.T) {
	det := &blockingDetector{entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := NewMachine(DefaultConfig(), fixedRand(0), nil)
	sess := NewSession(m, ModeVerify, det, WithSessionClock(clock.Fake(t0)))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sess.Tick(context.Background())
	}()
	<-det.entered

	sess.Tick(context.Background())
	det.mu.Lock()
	assert.Equal(t, 1, det.calls)
	det.mu.Unlock()

	close(det.release)
	wg.Wait()
	assert.Equal(t, StateAwaitingStableFace, sess.State().Tag)
}

func TestSession_StartRunsOnTicker(t *testing.T) {
	fc := clock.Fake(t0)
	det := &scriptDetector{frames: []*Detection{face(5, 5)}}
	m := NewMachine(DefaultConfig(), fixedRand(0), nil)
	sess := NewSession(m, ModeRegister, det, WithSessionClock(fc))

	sess.Start(context.Background())
	fc.Advance(150 * time.Millisecond)

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
	res, ok := sess.Result()
	require.True(t, ok)
	assert.True(t, res.Passed)
}

func TestSession_ContextCancelEndsSession(t *testing.T) {
	fc := clock.Fake(t0)
	m := NewMachine(DefaultConfig(), fixedRand(0), nil)
	sess := NewSession(m, ModeVerify, &scriptDetector{}, WithSessionClock(fc))

	ctx, cancel := context.WithCancel(context.Background())
	sess.Start(ctx)
	cancel()

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
	res, _ := sess.Result()
	assert.Equal(t, ReasonCancelled, res.Reason)
	assert.Zero(t, fc.Pending())
}

func TestMailbox(t *testing.T) {
	mb := NewMailbox()
	ctx := context.Background()

	_, err := mb.Detect(ctx)
	assert.ErrorIs(t, err, ErrFrameNotReady)

	require.NoError(t, mb.Put(face(1, 2)))
	require.NoError(t, mb.Put(face(3, 4)))
	d, err := mb.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 3, Y: 4}, d.Nose, "newest frame wins")

	_, err = mb.Detect(ctx)
	assert.ErrorIs(t, err, ErrFrameNotReady)

	require.NoError(t, mb.Put(nil))
	d, err = mb.Detect(ctx)
	require.NoError(t, err)
	assert.Nil(t, d)

	mb.Fail(errors.New("camera gone"))
	_, err = mb.Detect(ctx)
	assert.EqualError(t, err, "camera gone")

	require.NoError(t, mb.Close())
	assert.True(t, mb.Closed())
	assert.ErrorIs(t, mb.Put(face(0, 0)), ErrMailboxClosed)
}
