package gate

import (
	"sync"

	"attendance_gate/internal/liveness"
)

// Event types sent to the scanner client.
const (
	EventProgress = "progress"
	EventSuccess  = "success"
	EventFailure  = "failure"
)

// Event is one scanner update. Exactly one success or failure event ends
// the stream.
type Event struct {
	Type     string             `json:"type"`
	Mode     liveness.Mode      `json:"mode"`
	Progress *liveness.Progress `json:"progress,omitempty"`
	Reason   string             `json:"reason,omitempty"`
	Message  string             `json:"message,omitempty"`
}

const scanEventBuffer = 32

// Scan is the client-facing handle of one liveness attempt.
type Scan struct {
	Mode    liveness.Mode
	Mailbox *liveness.Mailbox

	session *liveness.Session
	events  chan Event
	mu      sync.Mutex
	closed  bool
}

func newScan(mode liveness.Mode) *Scan {
	return &Scan{
		Mode:    mode,
		Mailbox: liveness.NewMailbox(),
		events:  make(chan Event, scanEventBuffer),
	}
}

// Events yields progress and the final outcome, then closes.
func (s *Scan) Events() <-chan Event { return s.events }

// Done is closed when the liveness session has ended.
func (s *Scan) Done() <-chan struct{} { return s.session.Done() }

func (s *Scan) Progress() liveness.Progress { return s.session.Progress() }

// Cancel ends the scan as if the scanner was closed. It is a no-op once the
// scan has an outcome.
func (s *Scan) Cancel() { s.session.Cancel() }

// emit drops progress when the client is slow; the next frame supersedes it.
func (s *Scan) emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- e:
	default:
	}
}

// finish delivers the terminal event, making room for it if needed.
func (s *Scan) finish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.events <- e:
			s.closed = true
			close(s.events)
			return
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}
