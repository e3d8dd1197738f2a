package liveness

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"attendance_gate/internal/clock"
)

// Detector runs face detection on the latest camera frame. It returns nil
// when no face is present and ErrFrameNotReady when there is nothing new to
// look at. Any other error ends the session. Detectors that also implement
// io.Closer are closed when the session ends.
type Detector interface {
	Detect(ctx context.Context) (*Detection, error)
}

// Session drives one Machine run from a ticker, with a watchdog and a single
// terminal outcome. The zero value is not usable; use NewSession.
type Session struct {
	machine    *Machine
	mode       Mode
	clock      clock.Clock
	detector   Detector
	enrolled   Descriptor
	onDone     func(Result)
	onProgress func(Progress)

	mu        sync.Mutex
	state     State
	startedAt time.Time
	busy      bool
	ticker    *clock.Ticker
	watchdog  *clock.Timer
	cancel    context.CancelFunc
	result    *Result
	done      chan struct{}
}

type SessionOption func(*Session)

// WithEnrolled sets the reference descriptor for verify mode.
func WithEnrolled(d Descriptor) SessionOption {
	return func(s *Session) { s.enrolled = cloneDescriptor(d) }
}

// WithOnDone registers the terminal callback. It runs at most once.
func WithOnDone(f func(Result)) SessionOption {
	return func(s *Session) { s.onDone = f }
}

// WithOnProgress registers a callback for every processed frame.
func WithOnProgress(f func(Progress)) SessionOption {
	return func(s *Session) { s.onProgress = f }
}

func WithSessionClock(c clock.Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

func NewSession(m *Machine, mode Mode, det Detector, opts ...SessionOption) *Session {
	s := &Session{
		machine:  m,
		mode:     mode,
		clock:    clock.Real(),
		detector: det,
		state:    m.Start(mode),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.clock.Now()
	return s
}

// Start arms the detection ticker and the watchdog and runs the tick loop
// until the session ends or ctx is cancelled.
func (s *Session) Start(ctx context.Context) {
	ctx, ticker, ok := s.arm(ctx)
	if !ok {
		return
	}

	logrus.WithFields(logrus.Fields{
		"mode":    s.mode,
		"timeout": s.machine.Config().Timeout,
	}).Info("Liveness session started.")

	go s.loop(ctx, ticker)
}

func (s *Session) arm(parent context.Context) (context.Context, *clock.Ticker, bool) {
	cfg := s.machine.Config()
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		cancel()
		return nil, nil, false
	}
	s.cancel = cancel
	s.startedAt = s.clock.Now()
	s.ticker = s.clock.NewTicker(cfg.TickInterval)
	if cfg.Timeout > 0 {
		s.watchdog = s.clock.AfterFunc(cfg.Timeout, s.expire)
	}
	return ctx, s.ticker, true
}

func (s *Session) loop(ctx context.Context, ticker *clock.Ticker) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.finish(s.failure(ReasonCancelled))
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one detection and feeds it to the machine. A tick that arrives
// while the previous detection is still running, or after the session has
// ended, returns immediately.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.result != nil || s.busy {
		s.mu.Unlock()
		return
	}
	s.busy = true
	s.mu.Unlock()

	det, err := s.detector.Detect(ctx)
	now := s.clock.Now()

	s.mu.Lock()
	s.busy = false
	if s.result != nil || errors.Is(err, ErrFrameNotReady) {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.mu.Unlock()
		logrus.WithError(err).Warn("Face detector failed, ending liveness session.")
		s.finish(s.failure(ReasonCameraUnavailable))
		return
	}

	st := s.machine.Step(s.state, Frame{At: now, Detection: det})
	if st.Tag == StateVerifying {
		st = s.machine.Verify(st, s.enrolled)
	}
	s.state = st
	progress := s.progressLocked(now)

	var res Result
	terminal := st.Tag.Terminal()
	if terminal {
		res = resultOf(st)
		terminal = s.settleLocked(res)
	}
	s.mu.Unlock()

	if s.onProgress != nil {
		s.onProgress(progress)
	}
	if terminal {
		s.release(res)
	}
}

// Cancel ends the session as if the scanner was closed.
func (s *Session) Cancel() {
	s.finish(s.failure(ReasonCancelled))
}

// expire is the watchdog callback.
func (s *Session) expire() {
	s.finish(s.failure(ReasonTimeout))
}

func (s *Session) failure(reason string) Result {
	return Result{Mode: s.mode, Reason: reason}
}

func (s *Session) finish(res Result) {
	s.mu.Lock()
	ok := s.settleLocked(res)
	if ok {
		s.state = fail(s.state, res.Reason)
	}
	s.mu.Unlock()
	if ok {
		s.release(res)
	}
}

// settleLocked records the terminal result and stops the timers. It reports
// false if the session had already ended.
func (s *Session) settleLocked(res Result) bool {
	if s.result != nil {
		return false
	}
	s.result = &res
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
	return true
}

// release runs once per session, after settleLocked succeeded.
func (s *Session) release(res Result) {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if c, ok := s.detector.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to release face detector.")
		}
	}
	close(s.done)

	logrus.WithFields(logrus.Fields{
		"mode":   res.Mode,
		"passed": res.Passed,
		"reason": res.Reason,
	}).Info("Liveness session finished.")

	if s.onDone != nil {
		s.onDone(res)
	}
}

// Done is closed once the session has a result.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked(s.clock.Now())
}

func (s *Session) progressLocked(now time.Time) Progress {
	cfg := s.machine.Config()
	st := s.state

	fraction := 1.0
	if cfg.Timeout > 0 {
		remaining := cfg.Timeout - now.Sub(s.startedAt)
		fraction = float64(max(remaining, 0)) / float64(cfg.Timeout)
	}
	if st.Tag.Terminal() {
		fraction = 0
	}

	total := 0
	if st.Mode == ModeVerify {
		total = cfg.NumChallenges
	}
	return Progress{
		State:       st.Tag,
		Phase:       st.Phase(),
		Instruction: Instruction(st),
		Fraction:    fraction,
		Step:        min(st.Step, total),
		Total:       total,
	}
}

func resultOf(st State) Result {
	return Result{
		Mode:       st.Mode,
		Passed:     st.Tag == StatePassed,
		Reason:     st.Reason,
		Descriptor: cloneDescriptor(st.Captured),
	}
}
