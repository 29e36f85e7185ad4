package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults(t *testing.T, args ...string) Config {
	t.Helper()
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaults(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, map[string]string{"2": "Neloir", "5": "Gustavo", "6": "Cristian"}, cfg.Sales.Salespeople)
	assert.Equal(t, "Cancelada", cfg.Sales.CancelledPayment)
	assert.Equal(t, "VENDA MERCADORIA", cfg.Sales.SaleOperation)
	assert.Equal(t, []string{"Uberlândia"}, cfg.Region.ExcludedCities)
	assert.Equal(t, 30, cfg.Forecast.MinHistory)
	assert.Equal(t, 60, cfg.Forecast.Horizon)
	assert.Equal(t, time.Second, cfg.Geocode.MinDelay)
	assert.Equal(t, "Brasil", cfg.Geocode.Country)
	assert.Equal(t, 500, cfg.Chat.MaxRows)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFlags(t *testing.T) {
	cfg := defaults(t,
		"-region.exclude-city=Curitiba",
		"-region.exclude-city=Londrina",
		"-geocode.min-delay=2s",
		"-log.level=debug",
	)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"Curitiba", "Londrina"}, cfg.Region.ExcludedCities)
	assert.Equal(t, 2*time.Second, cfg.Geocode.MinDelay)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salesboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen_address: ":9090"
sales:
  salespeople:
    "7": Maria
region:
  excluded_cities: []
forecast:
  min_history: 14
geocode:
  min_delay: 1500ms
`), 0o644))

	cfg := defaults(t)
	require.NoError(t, Load(path, &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Server.ListenAddress)
	assert.Equal(t, map[string]string{"7": "Maria"}, cfg.Sales.Salespeople)
	assert.Empty(t, cfg.Region.ExcludedCities)
	assert.Equal(t, 14, cfg.Forecast.MinHistory)
	assert.Equal(t, 1500*time.Millisecond, cfg.Geocode.MinDelay)
	// Untouched keys keep their flag defaults.
	assert.Equal(t, 60, cfg.Forecast.Horizon)
	assert.Equal(t, "Cancelada", cfg.Sales.CancelledPayment)
}

func TestLoadKeepsDefaultSalespeople(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salesboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o644))

	cfg := defaults(t)
	require.NoError(t, Load(path, &cfg))
	assert.Len(t, cfg.Sales.Salespeople, 3)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	cfg := defaults(t)
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [\n"), 0o644))
	assert.Error(t, Load(path, &cfg))
	assert.Len(t, cfg.Sales.Salespeople, 3)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"log level":     func(c *Config) { c.LogLevel = "trace" },
		"upload size":   func(c *Config) { c.Server.MaxUploadBytes = 0 },
		"datasets":      func(c *Config) { c.Session.MaxDatasets = 0 },
		"horizon":       func(c *Config) { c.Forecast.Horizon = 0 },
		"alpha":         func(c *Config) { c.Forecast.Alpha = 1.5 },
		"geocode delay": func(c *Config) { c.Geocode.MinDelay = -time.Second },
		"chat rows":     func(c *Config) { c.Chat.MaxRows = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := defaults(t)
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
