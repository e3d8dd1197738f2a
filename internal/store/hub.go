package store

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const subscriptionBuffer = 16

// Hub fans changes out to per-employee subscribers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[*Subscription]struct{})}
}

// Subscription receives the changes of one employee until closed.
type Subscription struct {
	C <-chan Change

	hub        *Hub
	employeeID string
	ch         chan Change
	once       sync.Once
}

func (h *Hub) Subscribe(employeeID string) *Subscription {
	ch := make(chan Change, subscriptionBuffer)
	sub := &Subscription{C: ch, hub: h, employeeID: employeeID, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[employeeID]; !ok {
		h.subscribers[employeeID] = make(map[*Subscription]struct{})
	}
	h.subscribers[employeeID][sub] = struct{}{}
	logrus.WithField("employee_id", employeeID).Debug("Change feed subscriber registered.")
	return sub
}

// Close unregisters the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.subscribers[s.employeeID]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.subscribers, s.employeeID)
			}
		}
		close(s.ch)
		logrus.WithField("employee_id", s.employeeID).Debug("Change feed subscriber removed.")
	})
}

// Publish delivers c to the employee's subscribers. A subscriber whose
// buffer is full misses the change rather than blocking the publisher.
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers[c.EmployeeID] {
		select {
		case sub.ch <- c:
		default:
			logrus.WithFields(logrus.Fields{
				"employee_id": c.EmployeeID,
				"table":       c.Table,
				"op":          c.Op,
			}).Warn("Change feed subscriber is full, dropping change.")
		}
	}
}

// Subscribers reports how many subscriptions an employee has.
func (h *Hub) Subscribers(employeeID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[employeeID])
}
