package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	separator     = "_"
	requestsTotal = "requests_total"

	subsystem = "clerkhook"

	inbound               = "http" + separator + "inbound"
	inboundRequestsName   = subsystem + separator + inbound + separator + requestsTotal
	webhookOutcomesName   = subsystem + separator + "webhook" + separator + "outcomes_total"
	webhookRejectionsName = subsystem + separator + "webhook" + separator + "rejections_total"
	verificationTimeName  = subsystem + separator + "webhook" + separator + "verification_duration_seconds"
	dispatchedEventsName  = subsystem + separator + "webhook" + separator + "dispatched_events_total"
	outcomeLabel          = "outcome"
	reasonLabel           = "reason"
	eventTypeLabel        = "type"
	dispatchResultLabel   = "result"

	MetricsPort = 6000
)

// Terminal outcomes of a single webhook request.
const (
	OutcomeSecretMissing      = "secret-missing"
	OutcomeVerificationFailed = "verification-failed"
	OutcomeVerified           = "verified"
)

var (
	initCalled        = false
	lock              = sync.Mutex{}
	inboundRequests   prometheus.Counter
	webhookOutcomes   *prometheus.CounterVec
	webhookRejections *prometheus.CounterVec
	verificationTimes prometheus.Histogram
	dispatchedEvents  *prometheus.CounterVec
)

func InitMetrics(registry *prometheus.Registry) {
	lock.Lock()
	defer lock.Unlock()
	if initCalled && registry == nil {
		return
	}
	initCalled = true
	if registry == nil {
		prometheus.MustRegister(createMetrics()...)
		return
	}
	registry.MustRegister(createMetrics()...)
}

func createMetrics() []prometheus.Collector {
	inboundRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: inboundRequestsName,
		Help: "Counts incoming webhook deliveries.",
	})
	webhookOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: webhookOutcomesName,
		Help: "Counts webhook deliveries by terminal outcome.",
	},
		[]string{outcomeLabel})
	webhookRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: webhookRejectionsName,
		Help: "Counts rejected webhook deliveries by reason.",
	},
		[]string{reasonLabel})
	verificationTimes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: verificationTimeName,
		Help: "Webhook signature verification duration in seconds.",
		// Create buckets of 0.0001, 0.001, 0.01, 0.1, and +Infinity
		Buckets: prometheus.ExponentialBuckets(0.0001, 10, 4),
	})
	dispatchedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: dispatchedEventsName,
		Help: "Counts verified events handed to the dispatcher, by type and result.",
	},
		[]string{eventTypeLabel, dispatchResultLabel})
	return []prometheus.Collector{
		inboundRequests,
		webhookOutcomes,
		webhookRejections,
		verificationTimes,
		dispatchedEvents,
	}
}

func IncInboundCount() {
	if inboundRequests != nil {
		inboundRequests.Inc()
	}
}

func IncOutcomeCount(outcome string) {
	if webhookOutcomes != nil {
		webhookOutcomes.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
	}
}

func IncRejectionCount(reason string) {
	if webhookRejections != nil {
		webhookRejections.With(prometheus.Labels{reasonLabel: reason}).Inc()
	}
}

func AddVerificationTime(seconds float64) {
	if verificationTimes != nil {
		verificationTimes.Observe(seconds)
	}
}

// IncDispatchedCount records a dispatched event. An empty result means the
// dispatcher succeeded.
func IncDispatchedCount(eventType, result string) {
	if result == "" {
		result = "ok"
	}
	if dispatchedEvents != nil {
		dispatchedEvents.With(prometheus.Labels{eventTypeLabel: eventType, dispatchResultLabel: result}).Inc()
	}
}
