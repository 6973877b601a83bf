package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	DefaultTTL          = 10 * time.Minute
)

var (
	ErrEmptyAddress    = errors.New("empty address")
	ErrAddressNotFound = errors.New("address not found")

	ErrInvalidCoordinates = errors.New("coordinates out of range")
)

type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Report struct {
	Location            Location  `json:"location"`
	Temperature         float64   `json:"temperature"`
	ApparentTemperature float64   `json:"apparentTemperature"`
	Humidity            float64   `json:"humidity"`
	WindSpeed           float64   `json:"windSpeed"`
	Code                int       `json:"weatherCode"`
	Condition           Condition `json:"condition"`
	IsDay               bool      `json:"isDay"`
	FetchedAt           time.Time `json:"fetchedAt"`
}

type Config struct {
	GeocodingURL string
	ForecastURL  string
	TTL          time.Duration
}

type cached struct {
	report  Report
	expires time.Time
}

type service struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger

	mu    sync.Mutex
	cache map[string]cached
}

func New(cfg Config, httpClient *http.Client) *service {
	if cfg.GeocodingURL == "" {
		cfg.GeocodingURL = DefaultGeocodingURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = DefaultForecastURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &service{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
		logger:     zap.L(),
		cache:      make(map[string]cached),
	}
}

// Lookup geocodes the address and returns its current weather, cached per
// normalised address.
func (s *service) Lookup(ctx context.Context, address string) (*Report, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	if key == "" {
		return nil, ErrEmptyAddress
	}
	return s.fromCache(key, func() (*Report, error) {
		loc, err := s.geocode(ctx, address)
		if err != nil {
			return nil, err
		}
		return s.forecast(ctx, *loc)
	})
}

// LookupCoordinates returns the current weather at a fixed point without
// geocoding.
func (s *service) LookupCoordinates(ctx context.Context, latitude, longitude float64) (*Report, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, fmt.Errorf("%w: %v,%v", ErrInvalidCoordinates, latitude, longitude)
	}
	loc := Location{Latitude: latitude, Longitude: longitude}
	key := strconv.FormatFloat(latitude, 'f', -1, 64) + "," + strconv.FormatFloat(longitude, 'f', -1, 64)
	return s.fromCache(key, func() (*Report, error) {
		return s.forecast(ctx, loc)
	})
}

func (s *service) fromCache(key string, fetch func() (*Report, error)) (*Report, error) {
	s.mu.Lock()
	if c, ok := s.cache[key]; ok && s.now().Before(c.expires) {
		s.mu.Unlock()
		r := c.report
		return &r, nil
	}
	s.mu.Unlock()

	report, err := fetch()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = cached{report: *report, expires: s.now().Add(s.cfg.TTL)}
	s.mu.Unlock()
	return report, nil
}

type geocodeResponse struct {
	Results []Location `json:"results"`
}

func (s *service) geocode(ctx context.Context, address string) (*Location, error) {
	q := url.Values{}
	q.Set("name", strings.TrimSpace(address))
	q.Set("count", "1")
	q.Set("format", "json")

	var res geocodeResponse
	if err := s.get(ctx, s.cfg.GeocodingURL+"?"+q.Encode(), &res); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(res.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrAddressNotFound, address)
	}
	return &res.Results[0], nil
}

type forecastResponse struct {
	Current struct {
		Temperature         float64 `json:"temperature_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		Humidity            float64 `json:"relative_humidity_2m"`
		WindSpeed           float64 `json:"wind_speed_10m"`
		WeatherCode         int     `json:"weather_code"`
		IsDay               int     `json:"is_day"`
	} `json:"current"`
}

func (s *service) forecast(ctx context.Context, loc Location) (*Report, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,weather_code,is_day")

	var res forecastResponse
	if err := s.get(ctx, s.cfg.ForecastURL+"?"+q.Encode(), &res); err != nil {
		return nil, fmt.Errorf("forecast for %v,%v: %w", loc.Latitude, loc.Longitude, err)
	}
	cur := res.Current
	return &Report{
		Location:            loc,
		Temperature:         cur.Temperature,
		ApparentTemperature: cur.ApparentTemperature,
		Humidity:            cur.Humidity,
		WindSpeed:           cur.WindSpeed,
		Code:                cur.WeatherCode,
		Condition:           Classify(cur.WeatherCode),
		IsDay:               cur.IsDay == 1,
		FetchedAt:           s.now(),
	}, nil
}

func (s *service) get(ctx context.Context, u string, out any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.logger.Warn("weather request failed", zap.Error(err))
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx))
}
