package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewPricingRetriesTotal returns a counter of retried pricing quotes.
func NewPricingRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_retries_total",
		Help: "Total number of retry attempts performed by the pricing quoter",
	})
}

// NewOffersSentTotal returns a counter of offers handed to the courier channel.
func NewOffersSentTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offers_sent_total",
		Help: "Total number of job offers published to couriers",
	})
}

// NewOfferFailuresTotal returns a counter of offers that could not be published.
func NewOfferFailuresTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offer_failures_total",
		Help: "Total number of job offers that failed to publish",
	})
}

// NewAcceptConflictsTotal returns a counter of lost accept races.
func NewAcceptConflictsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "accept_conflicts_total",
		Help: "Total number of accept attempts that lost the assignment race",
	})
}

// NewDelayStatusChangesTotal returns a counter of delay flips labelled by direction
// ("delayed" or "cleared").
func NewDelayStatusChangesTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delay_status_changes_total",
		Help: "Total number of jobs flagged or unflagged as delayed by the sweep",
	}, []string{"direction"})
}

// NewLocationUpdatesDroppedTotal returns a counter of location updates lost
// after persistence failures.
func NewLocationUpdatesDroppedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "location_updates_dropped_total",
		Help: "Total number of courier location updates dropped after a failed flush",
	})
}

// NewLocationFlushedTotal returns a counter of persisted location updates.
func NewLocationFlushedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "location_flushed_total",
		Help: "Total number of courier location updates persisted",
	})
}

// NewSettlementsTotal returns a counter of settlement outcomes labelled by result
// ("settled", "duplicate" or "reversed").
func NewSettlementsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Total number of settlement operations by result",
	}, []string{"result"})
}

// HTTP holds the request metrics recorded by the observability middleware.
type HTTP struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewHTTP returns request counters and latency histograms labelled by method,
// route pattern and status.
func NewHTTP() HTTP {
	labels := []string{"method", "path", "status"}
	return HTTP{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, labels),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, labels),
	}
}

// Collectors lists the collectors for registration.
func (h HTTP) Collectors() []prometheus.Collector {
	return []prometheus.Collector{h.Requests, h.Duration}
}
