package location

import (
	"math"
	"time"
)

// Sample is one platform position fix. It is never mutated after creation.
type Sample struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy"`
	CapturedAt     time.Time `json:"captured_at"`
	Mocked         bool      `json:"mocked,omitempty"`
}

// sameCoordinates reports bit-identical latitude and longitude. Any jitter,
// however small, counts as movement.
func (s Sample) sameCoordinates(o Sample) bool {
	return math.Float64bits(s.Latitude) == math.Float64bits(o.Latitude) &&
		math.Float64bits(s.Longitude) == math.Float64bits(o.Longitude)
}

func (s Sample) sameAccuracy(o Sample) bool {
	return math.Float64bits(s.AccuracyMeters) == math.Float64bits(o.AccuracyMeters)
}

// History is a bounded, newest-first sequence of samples.
type History struct {
	capacity int
	samples  []Sample
}

func NewHistory(capacity int) *History {
	if capacity < 2 {
		capacity = 2
	}
	return &History{capacity: capacity, samples: make([]Sample, 0, capacity)}
}

// Push prepends s, dropping the oldest sample once capacity is reached.
func (h *History) Push(s Sample) {
	if len(h.samples) == h.capacity {
		h.samples = h.samples[:h.capacity-1]
	}
	h.samples = append([]Sample{s}, h.samples...)
}

// Latest returns the newest sample.
func (h *History) Latest() (Sample, bool) {
	if len(h.samples) == 0 {
		return Sample{}, false
	}
	return h.samples[0], true
}

func (h *History) Len() int { return len(h.samples) }

// Samples returns a copy, newest first.
func (h *History) Samples() []Sample {
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

func (h *History) Clear() { h.samples = h.samples[:0] }
