package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"courier-dispatch/internal/config"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/dispatchtx"
	"courier-dispatch/internal/pricing"
	"courier-dispatch/internal/repository"
	"courier-dispatch/internal/service/delay"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/service/ledger"
	"courier-dispatch/internal/service/location"
	"courier-dispatch/internal/service/notify"
	"courier-dispatch/internal/service/transit"
	"courier-dispatch/internal/transport/kafka"
)

func registerService(container *dig.Container) error {
	return provideAll(container,
		newNotifier,
		newQuoter,
		newFinder,
		newBroadcaster,
		newDispatchService,
		newLedgerService,
		newOrchestrator,
		newDelayMonitor,
		newSweepJob,
		newLocationQueue,
	)
}

func component(logger logx.Logger, name string) logx.Logger {
	return logger.With(logx.String("component", name))
}

// newNotifier drops events when Kafka is disabled.
func newNotifier(p *kafka.Producer, logger logx.Logger) *notify.Notifier {
	if p == nil {
		return notify.New(nil, logger)
	}
	return notify.New(p, component(logger, "notify"))
}

type quoterIn struct {
	dig.In
	Config  *config.Config
	Logger  logx.Logger
	Retries prometheus.Counter `name:"pricing_retries_total"`
}

func newQuoter(in quoterIn) (pricing.Quoter, error) {
	base, err := pricing.NewDistanceQuoter(in.Config.Pricing)
	if err != nil {
		return nil, err
	}
	return pricing.NewRetryingQuoter(base, component(in.Logger, "pricing"), in.Retries, pricing.RetryConfig{
		MaxAttempts: in.Config.Pricing.MaxAttempts,
		BaseDelay:   in.Config.Pricing.BaseDelay,
		MaxDelay:    in.Config.Pricing.MaxDelay,
	}), nil
}

func newFinder(index geo.Index, store *repository.Store, logger logx.Logger) *dispatch.Finder {
	return dispatch.NewFinder(index, store, component(logger, "finder"))
}

type broadcasterIn struct {
	dig.In
	Producer *kafka.Producer
	Logger   logx.Logger
	Sent     prometheus.Counter `name:"dispatch_offers_sent_total"`
	Failed   prometheus.Counter `name:"dispatch_offer_failures_total"`
}

func newBroadcaster(in broadcasterIn) *dispatch.Broadcaster {
	var pub dispatch.OfferPublisher
	if in.Producer != nil {
		pub = in.Producer
	}
	return dispatch.NewBroadcaster(pub, in.Sent, in.Failed, component(in.Logger, "broadcaster"))
}

type dispatchIn struct {
	dig.In
	Config      *config.Config
	Store       dispatchtx.Store
	Finder      *dispatch.Finder
	Broadcaster *dispatch.Broadcaster
	Notifier    *notify.Notifier
	Logger      logx.Logger
	Conflicts   prometheus.Counter `name:"accept_conflicts_total"`
}

func newDispatchService(in dispatchIn) *dispatch.Service {
	return dispatch.NewService(in.Store, in.Finder, in.Broadcaster, in.Notifier, in.Conflicts, dispatch.Config{
		RadiusMeters: in.Config.Dispatch.RadiusMeters,
		OfferCap:     in.Config.Dispatch.OfferCap,
		OpTimeout:    in.Config.Dispatch.OpTimeout,
	}, component(in.Logger, "dispatch"))
}

type ledgerIn struct {
	dig.In
	Config   *config.Config
	Store    dispatchtx.Store
	Notifier *notify.Notifier
	Logger   logx.Logger
	Results  *prometheus.CounterVec `name:"settlements_total"`
}

func newLedgerService(in ledgerIn) *ledger.Service {
	return ledger.NewService(in.Store, ledger.Config{
		CourierShare: in.Config.Ledger.CourierShare,
		OpTimeout:    in.Config.Dispatch.OpTimeout,
	}, in.Notifier, in.Results, component(in.Logger, "ledger"), ledger.DefaultHooks(in.Store)...)
}

func newOrchestrator(cfg *config.Config, store dispatchtx.Store, d *dispatch.Service, l *ledger.Service,
	q pricing.Quoter, n *notify.Notifier, logger logx.Logger) *transit.Orchestrator {
	return transit.NewOrchestrator(store, d, l, q, n, cfg.Dispatch.OpTimeout, component(logger, "transit"))
}

type delayIn struct {
	dig.In
	Config   *config.Config
	Store    dispatchtx.Store
	Notifier *notify.Notifier
	Logger   logx.Logger
	Changes  *prometheus.CounterVec `name:"delay_status_changes_total"`
}

func newDelayMonitor(in delayIn) *delay.Monitor {
	return delay.NewMonitor(in.Store, in.Notifier, in.Changes, in.Config.Dispatch.OpTimeout, component(in.Logger, "delay"))
}

func newSweepJob(cfg *config.Config, m *delay.Monitor, logger logx.Logger) *delay.SweepJob {
	return delay.NewSweepJob(m, cfg.Delay.SweepSchedule, logger)
}

type locationIn struct {
	dig.In
	Config  *config.Config
	Index   geo.Index
	Store   *repository.Store
	Logger  logx.Logger
	Flushed prometheus.Counter `name:"location_flushed_total"`
	Dropped prometheus.Counter `name:"location_updates_dropped_total"`
}

func newLocationQueue(in locationIn) *location.Queue {
	return location.NewQueue(in.Index, in.Store, location.Config{
		FlushInterval:  in.Config.Location.FlushInterval,
		FlushThreshold: in.Config.Location.FlushThreshold,
		MaxQueue:       in.Config.Location.MaxQueue,
		LastSeenWindow: in.Config.Location.LastSeenWindow,
		WriteTimeout:   in.Config.Dispatch.OpTimeout,
	}, in.Flushed, in.Dropped, component(in.Logger, "location_queue"))
}
