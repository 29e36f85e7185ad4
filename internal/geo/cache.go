package geo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

type Status int

const (
	Found Status = iota
	NotFound
	// Unresolved means the service could not answer (timeout, outage,
	// open circuit). It is cached like NotFound for the cache lifetime.
	Unresolved
	// Invalid means city or state was empty or a placeholder; the service
	// is never called for it.
	Invalid
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case Unresolved:
		return "could not resolve"
	default:
		return "invalid input"
	}
}

type Result struct {
	Key    string
	Status Status
	Point  Point
}

type metrics struct {
	lookups *prometheus.CounterVec
	calls   *prometheus.CounterVec
	entries prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		lookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesboard",
			Name:      "geocode_cache_lookups_total",
			Help:      "Geocode cache lookups by result (hit, miss, invalid).",
		}, []string{"result"}),
		calls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesboard",
			Name:      "geocode_requests_total",
			Help:      "Calls made to the geocoding service by outcome.",
		}, []string{"outcome"}),
		entries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "salesboard",
			Name:      "geocode_cache_entries",
			Help:      "Number of addresses held by the geocode cache.",
		}),
	}
}

// Cache memoizes geocoding results per normalized "city, state, country"
// key. Each key reaches the Geocoder at most once for the lifetime of the
// Cache, and calls to the Geocoder are serialized and spaced by the
// configured minimum delay no matter how many goroutines resolve at once.
// Build one per process and pass it to whatever needs coordinates.
type Cache struct {
	geocoder Geocoder
	country  string
	logger   log.Logger
	metrics  *metrics

	callMu  sync.Mutex
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[lookup]
	flight  singleflight.Group

	mu      sync.RWMutex
	entries map[string]Result
}

type lookup struct {
	point Point
	found bool
}

func New(cfg Config, g Geocoder, logger log.Logger, reg prometheus.Registerer) *Cache {
	limit := rate.Inf
	if cfg.MinDelay > 0 {
		limit = rate.Every(cfg.MinDelay)
	}
	failures := cfg.BreakerFailures
	if failures < 1 {
		failures = 1
	}
	c := &Cache{
		geocoder: g,
		country:  cfg.Country,
		logger:   log.With(logger, "component", "geocache"),
		metrics:  newMetrics(reg),
		limiter:  rate.NewLimiter(limit, 1),
		entries:  make(map[string]Result),
	}
	c.breaker = gobreaker.NewCircuitBreaker[lookup](gobreaker.Settings{
		Name:    "geocoder",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			level.Warn(c.logger).Log("msg", "geocoder circuit breaker changed state", "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Key builds the cache key for a city and state. It reports false when
// either is empty or the "-" placeholder.
func Key(city, state, country string) (string, bool) {
	city, state = normalize(city), normalize(state)
	if isPlaceholder(city) || isPlaceholder(state) {
		return "", false
	}
	if country = normalize(country); country == "" {
		return fmt.Sprintf("%s, %s", city, state), true
	}
	return fmt.Sprintf("%s, %s, %s", city, state, country), true
}

func normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func isPlaceholder(s string) bool {
	return s == "" || s == "-"
}

// Resolve returns the coordinates of city/state. Invalid input returns
// without any external call; a failing service yields Unresolved. Only a
// cancelled ctx leaves nothing cached, so a later call may try again; a
// caller sharing a lookup that another caller abandoned retries it.
func (c *Cache) Resolve(ctx context.Context, city, state string) Result {
	key, ok := Key(city, state, c.country)
	if !ok {
		c.metrics.lookups.WithLabelValues("invalid").Inc()
		return Result{Status: Invalid}
	}
	if r, ok := c.get(key); ok {
		c.metrics.lookups.WithLabelValues("hit").Inc()
		return r
	}
	c.metrics.lookups.WithLabelValues("miss").Inc()

	for {
		// ran is set only when this caller leads the flight; Do runs the
		// function on the leader's goroutine.
		ran := false
		v, err, _ := c.flight.Do(key, func() (interface{}, error) {
			ran = true
			// A flight for this key may have finished between get and Do.
			if r, ok := c.get(key); ok {
				return r, nil
			}
			r, err := c.lookup(ctx, key)
			if err != nil {
				return nil, err
			}
			c.set(key, r)
			return r, nil
		})
		if err == nil {
			return v.(Result)
		}
		if !ran && ctx.Err() == nil {
			// The leader's context ended, not ours: lead a new flight.
			continue
		}
		level.Debug(c.logger).Log("msg", "geocode lookup abandoned", "key", key, "err", err)
		return Result{Key: key, Status: Unresolved}
	}
}

// lookup performs the external call. It errors only when ctx ends first.
func (c *Cache) lookup(ctx context.Context, key string) (Result, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	start := time.Now()
	res, err := c.breaker.Execute(func() (lookup, error) {
		p, found, err := c.geocoder.Geocode(ctx, key)
		return lookup{point: p, found: found}, err
	})
	switch {
	case err != nil && ctx.Err() != nil:
		return Result{}, ctx.Err()
	case err != nil:
		c.metrics.calls.WithLabelValues("unresolved").Inc()
		level.Warn(c.logger).Log("msg", "could not geocode", "key", key, "duration", time.Since(start), "err", err)
		return Result{Key: key, Status: Unresolved}, nil
	case !res.found:
		c.metrics.calls.WithLabelValues("not_found").Inc()
		level.Info(c.logger).Log("msg", "address not found", "key", key)
		return Result{Key: key, Status: NotFound}, nil
	}
	c.metrics.calls.WithLabelValues("found").Inc()
	level.Debug(c.logger).Log("msg", "geocoded", "key", key, "point", res.point, "duration", time.Since(start))
	return Result{Key: key, Status: Found, Point: res.point}, nil
}

func (c *Cache) get(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *Cache) set(key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = r
	c.metrics.entries.Set(float64(len(c.entries)))
}

// Len is the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
