package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ErrUnavailable covers timeouts, transport failures and non-2xx answers
// from the geocoding service.
var ErrUnavailable = errors.New("geocoding service unavailable")

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder turns a free-form address into coordinates. found is false for
// a definitive "no such place".
type Geocoder interface {
	Geocode(ctx context.Context, address string) (p Point, found bool, err error)
}

// Nominatim queries an OpenStreetMap Nominatim search endpoint.
type Nominatim struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

func NewNominatim(cfg Config) *Nominatim {
	return &Nominatim{
		endpoint:  strings.TrimSuffix(cfg.Endpoint, "/"),
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) Geocode(ctx context.Context, address string) (Point, bool, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"/search?"+q.Encode(), nil)
	if err != nil {
		return Point{}, false, errors.Wrap(err, "build geocode request")
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Point{}, false, ctx.Err()
		}
		return Point{}, false, errors.Wrapf(ErrUnavailable, "geocode %q: %v", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Point{}, false, errors.Wrapf(ErrUnavailable, "geocode %q: status %d", address, resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Point{}, false, errors.Wrapf(ErrUnavailable, "geocode %q: decode: %v", address, err)
	}
	if len(places) == 0 {
		return Point{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Point{}, false, errors.Wrapf(ErrUnavailable, "geocode %q: latitude %q", address, places[0].Lat)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Point{}, false, errors.Wrapf(ErrUnavailable, "geocode %q: longitude %q", address, places[0].Lon)
	}
	return Point{Latitude: lat, Longitude: lon}, true, nil
}

func (p Point) String() string {
	return fmt.Sprintf("%.5f,%.5f", p.Latitude, p.Longitude)
}
