package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	checkInPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hundreddays",
		Subsystem: "persistence",
		Name:      "last_checkin_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent check-in persisted to Postgres.",
	})
	challengesCompletedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hundreddays",
		Subsystem: "persistence",
		Name:      "challenges_completed_total",
		Help:      "Number of challenges transitioned to completed.",
	})
)

func init() {
	prometheus.MustRegister(checkInPersistGauge, challengesCompletedCounter)
}

// RecordCheckInPersisted updates the persistence watermark gauge.
func RecordCheckInPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	checkInPersistGauge.Set(float64(ts.Unix()))
}

// RecordChallengeCompleted increments the completion counter.
func RecordChallengeCompleted() {
	challengesCompletedCounter.Inc()
}
