package gate

import (
	"sync"

	"attendance_gate/internal/location"
)

// PushSource is the position watch for fixes that arrive over HTTP. While a
// watch is running, pushed fixes reach the watcher; otherwise they are
// refused.
type PushSource struct {
	mu       sync.Mutex
	onSample func(location.Sample)
	onError  func(error)
	watches  int
}

func NewPushSource() *PushSource {
	return &PushSource{}
}

// Watch starts delivering fixes. The returned stop func is idempotent.
func (p *PushSource) Watch(onSample func(location.Sample), onError func(error)) (stop func()) {
	p.mu.Lock()
	p.onSample = onSample
	p.onError = onError
	p.watches++
	gen := p.watches
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.watches == gen {
			p.onSample = nil
			p.onError = nil
		}
	}
}

func (p *PushSource) Push(s location.Sample) error {
	p.mu.Lock()
	fn := p.onSample
	p.mu.Unlock()
	if fn == nil {
		return ErrNotWatching
	}
	fn(s)
	return nil
}

// Fail reports a sensor failure such as a denied permission.
func (p *PushSource) Fail(err error) error {
	p.mu.Lock()
	fn := p.onError
	p.mu.Unlock()
	if fn == nil {
		return ErrNotWatching
	}
	fn(err)
	return nil
}

func (p *PushSource) Watching() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onSample != nil
}

// Watches counts how many watches were ever started.
func (p *PushSource) Watches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watches
}
