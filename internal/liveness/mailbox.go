package liveness

import (
	"context"
	"errors"
	"sync"
)

var ErrMailboxClosed = errors.New("liveness: mailbox closed")

// Mailbox is a Detector fed by a remote client. The client pushes its own
// per-frame detections; each Detect call takes the newest unread one. Frames
// that arrive between ticks overwrite each other.
type Mailbox struct {
	mu     sync.Mutex
	frame  *Detection
	fresh  bool
	err    error
	closed bool
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Put stores the latest detection. nil means the client saw no face.
func (m *Mailbox) Put(d *Detection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMailboxClosed
	}
	if d != nil {
		cp := *d
		cp.Descriptor = cloneDescriptor(d.Descriptor)
		d = &cp
	}
	m.frame = d
	m.fresh = true
	return nil
}

// Fail reports a client-side sensor failure. The next Detect returns err.
func (m *Mailbox) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.err = err
	}
}

func (m *Mailbox) Detect(ctx context.Context) (*Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return nil, ErrMailboxClosed
	case m.err != nil:
		return nil, m.err
	case !m.fresh:
		return nil, ErrFrameNotReady
	}
	m.fresh = false
	return m.frame, nil
}

func (m *Mailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.frame = nil
	return nil
}

// Closed reports whether the session owning the mailbox has ended.
func (m *Mailbox) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
