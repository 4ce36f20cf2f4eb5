package weatherService

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"stormStakes/config"
)

// ErrSignalUnavailable marks a transient fetch failure. Callers degrade
// to a zero weather contribution instead of failing the valuation.
var ErrSignalUnavailable = errors.New("weather signal unavailable")

// Observation is the current weather at a city.
type Observation struct {
	City         string
	TemperatureC float64
	WindKph      float64
	Raining      bool
	ObservedAt   time.Time
}

// ObservationProvider is what the valuation engine consumes.
type ObservationProvider interface {
	GetObservation(ctx context.Context, city string) (*Observation, error)
}

// Client fetches observations from an Open-Meteo style API. City names
// are resolved to coordinates once and cached for the process lifetime.
type Client struct {
	baseURL    string
	geocodeURL string
	http       *http.Client
	retryCount int
	logger     *logrus.Logger

	mu     sync.Mutex
	coords map[string]geoPoint
}

type geoPoint struct {
	Latitude  float64
	Longitude float64
}

func NewClient(cfg *config.WeatherConfig, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		geocodeURL: "https://geocoding-api.open-meteo.com/v1",
		http:       &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		retryCount: cfg.RetryCount,
		logger:     logger,
		coords:     make(map[string]geoPoint),
	}
}

type geocodeResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
		Time        string  `json:"time"`
	} `json:"current_weather"`
}

// GetObservation returns the current weather for a city. Any network or
// decoding failure is reported as ErrSignalUnavailable.
func (c *Client) GetObservation(ctx context.Context, city string) (*Observation, error) {
	point, err := c.resolveCity(ctx, city)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/forecast?latitude=%.4f&longitude=%.4f&current_weather=true",
		c.baseURL, point.Latitude, point.Longitude)

	var fc forecastResponse
	if err := c.getJSON(ctx, reqURL, &fc); err != nil {
		return nil, err
	}

	return &Observation{
		City:         city,
		TemperatureC: fc.CurrentWeather.Temperature,
		WindKph:      fc.CurrentWeather.WindSpeed,
		Raining:      isRainingCode(fc.CurrentWeather.WeatherCode),
		ObservedAt:   time.Now(),
	}, nil
}

func (c *Client) resolveCity(ctx context.Context, city string) (geoPoint, error) {
	c.mu.Lock()
	point, ok := c.coords[city]
	c.mu.Unlock()
	if ok {
		return point, nil
	}

	reqURL := fmt.Sprintf("%s/search?name=%s&count=1", c.geocodeURL, url.QueryEscape(city))
	var geo geocodeResponse
	if err := c.getJSON(ctx, reqURL, &geo); err != nil {
		return geoPoint{}, err
	}
	if len(geo.Results) == 0 {
		return geoPoint{}, fmt.Errorf("%w: unknown city %q", ErrSignalUnavailable, city)
	}

	point = geoPoint{Latitude: geo.Results[0].Latitude, Longitude: geo.Results[0].Longitude}
	c.mu.Lock()
	c.coords[city] = point
	c.mu.Unlock()
	return point, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSignalUnavailable, err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	c.logger.WithError(lastErr).WithField("url", reqURL).Warn("weather fetch failed")
	return fmt.Errorf("%w: %v", ErrSignalUnavailable, lastErr)
}

// WMO weather codes: 51+ covers drizzle, rain, snow and showers.
func isRainingCode(code int) bool {
	return code >= 51
}
