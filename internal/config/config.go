package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config stores service settings.
type Config struct {
	Port      int
	DB        DB
	Dispatch  Dispatch
	Delay     Delay
	Location  Location
	Ledger    Ledger
	Pricing   Pricing
	Kafka     Kafka
	RateLimit RateLimit
	Debug     Debug
}

// DB holds Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a pgx connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Dispatch holds candidate search and offer settings.
type Dispatch struct {
	RadiusMeters float64
	OfferCap     int
	// OfferTimeout is accepted for compatibility; offers are never revoked.
	OfferTimeout time.Duration
	OpTimeout    time.Duration
}

// Delay holds the delay sweep schedule (robfig/cron syntax).
type Delay struct {
	SweepSchedule string
}

// Location holds write-back queue settings.
type Location struct {
	FlushInterval  time.Duration
	FlushThreshold int
	MaxQueue       int
	LastSeenWindow time.Duration
}

// Ledger holds settlement split settings.
type Ledger struct {
	// CourierShare is used when a job carries no explicit payout.
	CourierShare float64
}

// Pricing holds the default quoter settings. Money values are decimal strings.
type Pricing struct {
	BaseFare      string
	PerKm         string
	CommissionPct string
	SpeedKmh      float64
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
}

// Kafka holds broker settings. Empty brokers disable Kafka.
type Kafka struct {
	Brokers       []string
	GroupID       string
	LocationTopic string
	OfferTopic    string
	EventTopic    string
}

// Enabled reports whether any broker is configured.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// RateLimit holds the location endpoint limiter settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Debug holds the profiler listener settings. Port 0 disables it.
type Debug struct {
	Port int
	User string
	Pass string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}
	return LoadFrom(pflag.CommandLine, os.Args[1:])
}

// LoadFrom reads environment variables and then parses args with fs.
func LoadFrom(fs *pflag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{
		Port:      defaultPort,
		DB:        defaultDB,
		Dispatch:  defaultDispatch,
		Delay:     defaultDelay,
		Location:  defaultLocation,
		Ledger:    defaultLedger,
		Pricing:   defaultPricing,
		Kafka:     defaultKafka,
		RateLimit: defaultRateLimit,
	}

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	collect(envInt("PORT", &cfg.Port))
	envString("POSTGRES_HOST", &cfg.DB.Host)
	envString("POSTGRES_PORT", &cfg.DB.Port)
	envString("POSTGRES_USER", &cfg.DB.User)
	envString("POSTGRES_PASSWORD", &cfg.DB.Pass)
	envString("POSTGRES_DB", &cfg.DB.Name)

	collect(envFloat("DISPATCH_RADIUS_M", &cfg.Dispatch.RadiusMeters))
	collect(envInt("DISPATCH_OFFER_CAP", &cfg.Dispatch.OfferCap))
	collect(envDuration("DISPATCH_OFFER_TIMEOUT", &cfg.Dispatch.OfferTimeout))
	collect(envDuration("DISPATCH_OP_TIMEOUT", &cfg.Dispatch.OpTimeout))

	envString("DELAY_SWEEP_SCHEDULE", &cfg.Delay.SweepSchedule)

	collect(envDuration("LOCATION_FLUSH_INTERVAL", &cfg.Location.FlushInterval))
	collect(envInt("LOCATION_FLUSH_THRESHOLD", &cfg.Location.FlushThreshold))
	collect(envInt("LOCATION_MAX_QUEUE", &cfg.Location.MaxQueue))
	collect(envDuration("LOCATION_LAST_SEEN_WINDOW", &cfg.Location.LastSeenWindow))

	collect(envFloat("LEDGER_COURIER_SHARE", &cfg.Ledger.CourierShare))

	envString("PRICING_BASE_FARE", &cfg.Pricing.BaseFare)
	envString("PRICING_PER_KM", &cfg.Pricing.PerKm)
	envString("PRICING_COMMISSION_PCT", &cfg.Pricing.CommissionPct)
	collect(envFloat("PRICING_SPEED_KMH", &cfg.Pricing.SpeedKmh))
	collect(envInt("PRICING_MAX_ATTEMPTS", &cfg.Pricing.MaxAttempts))

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	envString("KAFKA_GROUP_ID", &cfg.Kafka.GroupID)
	envString("KAFKA_LOCATION_TOPIC", &cfg.Kafka.LocationTopic)
	envString("KAFKA_OFFER_TOPIC", &cfg.Kafka.OfferTopic)
	envString("KAFKA_EVENT_TOPIC", &cfg.Kafka.EventTopic)

	collect(envBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled))
	collect(envFloat("RATE_LIMIT_RATE", &cfg.RateLimit.Rate))
	collect(envInt("RATE_LIMIT_BURST", &cfg.RateLimit.Burst))

	collect(envInt("DEBUG_PORT", &cfg.Debug.Port))
	envString("DEBUG_USER", &cfg.Debug.User)
	envString("DEBUG_PASSWORD", &cfg.Debug.Pass)

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}

	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	fs.Float64Var(&cfg.Dispatch.RadiusMeters, "radius", cfg.Dispatch.RadiusMeters, "candidate search radius in meters")
	fs.IntVar(&cfg.Dispatch.OfferCap, "offer-cap", cfg.Dispatch.OfferCap, "number of couriers offered a job")
	fs.StringVar(&cfg.Delay.SweepSchedule, "sweep-schedule", cfg.Delay.SweepSchedule, "delay sweep cron schedule")
	fs.IntVar(&cfg.Debug.Port, "debug-port", cfg.Debug.Port, "profiler listener port, 0 disables it")
	fs.StringSliceVar(&cfg.Kafka.Brokers, "kafka-brokers", cfg.Kafka.Brokers, "kafka brokers")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port: %d", c.Port)
	case c.Dispatch.RadiusMeters <= 0:
		return fmt.Errorf("invalid dispatch radius: %v", c.Dispatch.RadiusMeters)
	case c.Dispatch.OfferCap <= 0:
		return fmt.Errorf("invalid offer cap: %d", c.Dispatch.OfferCap)
	case c.Location.FlushInterval <= 0:
		return fmt.Errorf("invalid location flush interval: %v", c.Location.FlushInterval)
	case c.Location.MaxQueue <= 0 || c.Location.FlushThreshold <= 0:
		return fmt.Errorf("invalid location queue bounds: threshold=%d max=%d", c.Location.FlushThreshold, c.Location.MaxQueue)
	case c.Ledger.CourierShare <= 0 || c.Ledger.CourierShare > 1:
		return fmt.Errorf("invalid courier share: %v", c.Ledger.CourierShare)
	case c.Debug.Port < 0 || c.Debug.Port > 65535 || (c.Debug.Port != 0 && c.Debug.Port == c.Port):
		return fmt.Errorf("invalid debug port: %d", c.Debug.Port)
	case strings.TrimSpace(c.Delay.SweepSchedule) == "":
		return fmt.Errorf("empty delay sweep schedule")
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive", key)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
