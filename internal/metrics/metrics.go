// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LocationSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_location_samples_total",
		Help: "Position fixes evaluated, by verdict (trusted or the rejection reason).",
	}, []string{"verdict"})

	LivenessSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_liveness_sessions_total",
		Help: "Finished liveness sessions by mode and outcome.",
	}, []string{"mode", "outcome"})

	ClockIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_clock_in_total",
		Help: "Clock-in attempts by outcome.",
	}, []string{"outcome"})
)

// Clock-in outcomes.
const (
	ClockInRecorded  = "recorded"
	ClockInDuplicate = "duplicate"
	ClockInFailed    = "failed"
	ClockInRejected  = "rejected"
	ClockInWriteErr  = "write_error"
)

// ObserveSample counts one filter verdict. An empty reason means trusted.
func ObserveSample(reason string) {
	if reason == "" {
		reason = "trusted"
	}
	LocationSamples.WithLabelValues(reason).Inc()
}

// ObserveSession counts one finished liveness session.
func ObserveSession(mode string, passed bool, reason string) {
	outcome := "passed"
	if !passed {
		outcome = reason
	}
	LivenessSessions.WithLabelValues(mode, outcome).Inc()
}
