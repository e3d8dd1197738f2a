package gate

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry owns the open gates, one per logged-in employee.
type Registry struct {
	deps Deps

	mu    sync.Mutex
	gates map[string]*Gate
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps.withDefaults(), gates: make(map[string]*Gate)}
}

// Open returns the employee's gate, opening a new one on first login. A
// second login from another device shares the same gate.
func (r *Registry) Open(ctx context.Context, employeeID string) (*Gate, error) {
	r.mu.Lock()
	if g, ok := r.gates[employeeID]; ok {
		r.mu.Unlock()
		return g, nil
	}
	g := New(employeeID, r.deps)
	r.gates[employeeID] = g
	r.mu.Unlock()

	if err := g.Open(ctx); err != nil {
		r.mu.Lock()
		if r.gates[employeeID] == g {
			delete(r.gates, employeeID)
		}
		r.mu.Unlock()
		g.Close()
		return nil, err
	}
	return g, nil
}

// Get returns an open gate.
func (r *Registry) Get(employeeID string) (*Gate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gates[employeeID]
	return g, ok
}

// Close logs the employee out.
func (r *Registry) Close(employeeID string) {
	r.mu.Lock()
	g, ok := r.gates[employeeID]
	delete(r.gates, employeeID)
	r.mu.Unlock()
	if ok {
		g.Close()
	}
}

// CloseAll runs on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	gates := r.gates
	r.gates = make(map[string]*Gate)
	r.mu.Unlock()

	for _, g := range gates {
		g.Close()
	}
	logrus.WithField("gates", len(gates)).Info("All attendance gates closed.")
}

// Len reports how many employees are logged in.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gates)
}
