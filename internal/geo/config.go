package geo

import (
	"flag"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	Endpoint  string        `yaml:"endpoint"`
	UserAgent string        `yaml:"user_agent"`
	Country   string        `yaml:"country"`
	MinDelay  time.Duration `yaml:"min_delay"`
	Timeout   time.Duration `yaml:"timeout"`

	// BreakerFailures is the number of consecutive service failures that
	// opens the circuit; lookups made while it is open are unresolved.
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("geocode.", f)
}

func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Endpoint, prefix+"endpoint", "https://nominatim.openstreetmap.org", "Base URL of the Nominatim geocoding service.")
	f.StringVar(&cfg.UserAgent, prefix+"user-agent", "salesboard", "User-Agent sent to the geocoding service.")
	f.StringVar(&cfg.Country, prefix+"country", "Brasil", "Country appended to every city and state lookup.")
	f.DurationVar(&cfg.MinDelay, prefix+"min-delay", time.Second, "Minimum delay between two calls to the geocoding service.")
	f.DurationVar(&cfg.Timeout, prefix+"timeout", 10*time.Second, "Timeout of a single geocoding call.")
	f.IntVar(&cfg.BreakerFailures, prefix+"breaker-failures", 5, "Consecutive geocoding failures that open the circuit breaker.")
	f.DurationVar(&cfg.BreakerCooldown, prefix+"breaker-cooldown", time.Minute, "How long the circuit breaker stays open.")
}

func (cfg *Config) Validate() error {
	if cfg.Endpoint == "" {
		return errors.New("geocode endpoint must not be empty")
	}
	if cfg.MinDelay < 0 {
		return errors.New("geocode min delay must not be negative")
	}
	if cfg.BreakerFailures < 1 {
		return errors.New("geocode breaker failures must be at least 1")
	}
	return nil
}
