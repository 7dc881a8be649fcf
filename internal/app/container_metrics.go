package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	"courier-dispatch/internal/metrics"
)

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

type metricsOut struct {
	dig.Out

	RateLimited     prometheus.Counter     `name:"rate_limit_exceeded_total"`
	PricingRetries  prometheus.Counter     `name:"pricing_retries_total"`
	OffersSent      prometheus.Counter     `name:"dispatch_offers_sent_total"`
	OfferFailures   prometheus.Counter     `name:"dispatch_offer_failures_total"`
	AcceptConflicts prometheus.Counter     `name:"accept_conflicts_total"`
	LocationDropped prometheus.Counter     `name:"location_updates_dropped_total"`
	LocationFlushed prometheus.Counter     `name:"location_flushed_total"`
	DelayChanges    *prometheus.CounterVec `name:"delay_status_changes_total"`
	Settlements     *prometheus.CounterVec `name:"settlements_total"`
	HTTP            metrics.HTTP
}

func provideMetrics(reg *prometheus.Registry) (metricsOut, error) {
	out := metricsOut{
		RateLimited:     metrics.NewRateLimitExceededTotal(),
		PricingRetries:  metrics.NewPricingRetriesTotal(),
		OffersSent:      metrics.NewOffersSentTotal(),
		OfferFailures:   metrics.NewOfferFailuresTotal(),
		AcceptConflicts: metrics.NewAcceptConflictsTotal(),
		LocationDropped: metrics.NewLocationUpdatesDroppedTotal(),
		LocationFlushed: metrics.NewLocationFlushedTotal(),
		DelayChanges:    metrics.NewDelayStatusChangesTotal(),
		Settlements:     metrics.NewSettlementsTotal(),
		HTTP:            metrics.NewHTTP(),
	}
	collectors := []prometheus.Collector{
		out.RateLimited, out.PricingRetries, out.OffersSent, out.OfferFailures, out.AcceptConflicts,
		out.LocationDropped, out.LocationFlushed, out.DelayChanges, out.Settlements,
	}
	collectors = append(collectors, out.HTTP.Collectors()...)
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return metricsOut{}, fmt.Errorf("register metrics: %w", err)
		}
	}
	return out, nil
}
