package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "dispatch_db",
}

var defaultDispatch = Dispatch{
	RadiusMeters: 5000,
	OfferCap:     5,
	OfferTimeout: 30 * time.Second,
	OpTimeout:    3 * time.Second,
}

var defaultDelay = Delay{
	SweepSchedule: "@every 1m",
}

var defaultLocation = Location{
	FlushInterval:  5 * time.Second,
	FlushThreshold: 500,
	MaxQueue:       10000,
	LastSeenWindow: 30 * time.Second,
}

var defaultLedger = Ledger{
	CourierShare: 0.8,
}

var defaultPricing = Pricing{
	BaseFare:      "30",
	PerKm:         "12",
	CommissionPct: "0.2",
	SpeedKmh:      25,
	MaxAttempts:   3,
	BaseDelay:     100 * time.Millisecond,
	MaxDelay:      400 * time.Millisecond,
}

var defaultKafka = Kafka{
	GroupID:       "dispatch-engine",
	LocationTopic: "courier.locations",
	OfferTopic:    "courier.offers",
	EventTopic:    "job.events",
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       5,
	Burst:      10,
	TTL:        5 * time.Minute,
	MaxBuckets: 50000,
}

// DefaultPort returns the default port.
func DefaultPort() int { return defaultPort }

// DefaultDB returns the default database settings.
func DefaultDB() DB { return defaultDB }

// DefaultDispatch returns the default dispatch settings.
func DefaultDispatch() Dispatch { return defaultDispatch }

// DefaultLocation returns the default write-back queue settings.
func DefaultLocation() Location { return defaultLocation }
