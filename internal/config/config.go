package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"salesboard/internal/chat"
	"salesboard/internal/geo"
)

// Config is the root configuration of the server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Sales    SalesConfig    `yaml:"sales"`
	Region   RegionConfig   `yaml:"region"`
	Forecast ForecastConfig `yaml:"forecast"`
	Geocode  geo.Config     `yaml:"geocode"`
	Chat     chat.Config    `yaml:"chat"`
	LogLevel string         `yaml:"log_level"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.Server.RegisterFlagsWithPrefix("server.", f)
	cfg.Session.RegisterFlagsWithPrefix("session.", f)
	cfg.Sales.RegisterFlagsWithPrefix("sales.", f)
	cfg.Region.RegisterFlagsWithPrefix("region.", f)
	cfg.Forecast.RegisterFlagsWithPrefix("forecast.", f)
	cfg.Geocode.RegisterFlags(f)
	cfg.Chat.RegisterFlags(f)
	f.StringVar(&cfg.LogLevel, "log.level", "info", "Only log messages with the given severity or above. One of: debug, info, warn, error.")
}

func (cfg *Config) Validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("invalid log level %q", cfg.LogLevel)
	}
	for name, v := range map[string]interface{ Validate() error }{
		"server":   &cfg.Server,
		"session":  &cfg.Session,
		"forecast": &cfg.Forecast,
		"geocode":  &cfg.Geocode,
		"chat":     &cfg.Chat,
	} {
		if err := v.Validate(); err != nil {
			return errors.Wrapf(err, "invalid %s config", name)
		}
	}
	return nil
}

// Load applies the YAML file at path on top of cfg, which normally holds
// the flag defaults. A salespeople map in the file replaces the default
// one instead of being merged into it.
func Load(path string, cfg *Config) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	defaults := cfg.Sales.Salespeople
	cfg.Sales.Salespeople = nil
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		cfg.Sales.Salespeople = defaults
		return errors.Wrapf(err, "parse config file %s", path)
	}
	if cfg.Sales.Salespeople == nil {
		cfg.Sales.Salespeople = defaults
	}
	return nil
}

type ServerConfig struct {
	ListenAddress  string `yaml:"listen_address"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

func (cfg *ServerConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.ListenAddress, prefix+"listen-address", ":8080", "Address the HTTP server listens on.")
	f.Int64Var(&cfg.MaxUploadBytes, prefix+"max-upload-bytes", 32<<20, "Largest accepted upload in bytes.")
}

func (cfg *ServerConfig) Validate() error {
	if cfg.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	return nil
}

type SessionConfig struct {
	MaxDatasets int           `yaml:"max_datasets"`
	TTL         time.Duration `yaml:"ttl"`
}

func (cfg *SessionConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&cfg.MaxDatasets, prefix+"max-datasets", 32, "Uploaded datasets kept in memory; the least recently used is dropped first.")
	f.DurationVar(&cfg.TTL, prefix+"ttl", 12*time.Hour, "How long an uploaded dataset is kept.")
}

func (cfg *SessionConfig) Validate() error {
	if cfg.MaxDatasets <= 0 {
		return errors.New("max datasets must be positive")
	}
	return nil
}

type SalesConfig struct {
	// Salespeople maps VENDEDOR codes to the names shown on the
	// salespeople-over-time chart.
	Salespeople map[string]string `yaml:"salespeople"`
	// OnlyNamedSalespeople leaves codes without a name off that chart.
	// They are reported either way.
	OnlyNamedSalespeople bool   `yaml:"only_named_salespeople"`
	CancelledPayment     string `yaml:"cancelled_payment"`
	SaleOperation        string `yaml:"sale_operation"`
}

func (cfg *SalesConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	cfg.Salespeople = map[string]string{"2": "Neloir", "5": "Gustavo", "6": "Cristian"}
	f.BoolVar(&cfg.OnlyNamedSalespeople, prefix+"only-named-salespeople", false, "Leave salespeople without a configured name off the over-time chart.")
	f.StringVar(&cfg.CancelledPayment, prefix+"cancelled-payment", "Cancelada", "FORMA PAGTO value of cancelled invoices.")
	f.StringVar(&cfg.SaleOperation, prefix+"sale-operation", "VENDA MERCADORIA", "OPERACAO value of the sales used for the forecast.")
}

type RegionConfig struct {
	ExcludedCities []string `yaml:"excluded_cities"`

	excludedSet bool
}

func (cfg *RegionConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	cfg.ExcludedCities = []string{"Uberlândia"}
	f.Func(prefix+"exclude-city", "City left out of the region report. May be repeated; replaces the default list.", func(s string) error {
		if !cfg.excludedSet {
			cfg.ExcludedCities, cfg.excludedSet = nil, true
		}
		cfg.ExcludedCities = append(cfg.ExcludedCities, s)
		return nil
	})
}

type ForecastConfig struct {
	MinHistory int     `yaml:"min_history"`
	Horizon    int     `yaml:"horizon"`
	Alpha      float64 `yaml:"alpha"`
	Beta       float64 `yaml:"beta"`
}

func (cfg *ForecastConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&cfg.MinHistory, prefix+"min-history", 30, "Days of sales needed before a forecast is made.")
	f.IntVar(&cfg.Horizon, prefix+"horizon", 60, "Days forecast after the last sale.")
	f.Float64Var(&cfg.Alpha, prefix+"alpha", 0.3, "Level smoothing factor of the forecast.")
	f.Float64Var(&cfg.Beta, prefix+"beta", 0.1, "Trend smoothing factor of the forecast.")
}

func (cfg *ForecastConfig) Validate() error {
	if cfg.MinHistory < 2 {
		return errors.New("forecast min history must be at least 2")
	}
	if cfg.Horizon <= 0 {
		return errors.New("forecast horizon must be positive")
	}
	if cfg.Alpha <= 0 || cfg.Alpha > 1 || cfg.Beta < 0 || cfg.Beta > 1 {
		return errors.New("forecast smoothing factors must lie in (0,1] and [0,1]")
	}
	return nil
}
