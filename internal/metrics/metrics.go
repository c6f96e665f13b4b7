package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	blockRequestsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_block_requests_created_total",
		Help: "Total number of block requests created, by caller type",
	}, []string{"caller"})
	blockRequestsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_block_requests_resolved_total",
		Help: "Total number of block requests moved out of the undecided state, by outcome",
	}, []string{"outcome"})
	notificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_notification_failures_total",
		Help: "Total number of resolution emails that could not be delivered",
	})
	submissionsThrottled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_submissions_throttled_total",
		Help: "Total number of anonymous submissions rejected by the rate limiter",
	})
	recoveredPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_http_panics_recovered_total",
		Help: "Total number of handler panics turned into 500 responses",
	})
	pendingBlockRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "warden_block_requests_pending",
		Help: "Number of block requests still awaiting a decision",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(
		blockRequestsCreated,
		blockRequestsResolved,
		notificationFailures,
		submissionsThrottled,
		recoveredPanics,
		pendingBlockRequests,
	)
}

// IncCreated increments the created counter for an "anonymous" or "admin" caller.
func IncCreated(caller string) { blockRequestsCreated.WithLabelValues(caller).Inc() }

// IncResolved increments the resolved counter for the given outcome.
func IncResolved(outcome string) { blockRequestsResolved.WithLabelValues(outcome).Inc() }

// IncNotificationFailure increments the failed notification counter.
func IncNotificationFailure() { notificationFailures.Inc() }

// IncThrottled increments the throttled submission counter.
func IncThrottled() { submissionsThrottled.Inc() }

// IncPanic increments the recovered panic counter.
func IncPanic() { recoveredPanics.Inc() }

// SetPending records the current undecided backlog size.
func SetPending(n int64) { pendingBlockRequests.Set(float64(n)) }
