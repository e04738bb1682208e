package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"weather-assistant/internal/observability"
	"weather-assistant/internal/version"
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	defaultArchiveURL   = "https://archive-api.open-meteo.com/v1/archive"

	dailyParams = "temperature_2m_max,temperature_2m_min,sunrise,sunset," +
		"sunshine_duration,daylight_duration,wind_speed_10m_max," +
		"precipitation_sum,weather_code"
	hourlyParams = "temperature_2m,wind_speed_10m,precipitation,weather_code,is_day"

	defaultForecastDays = 7
	maxForecastDays     = 16

	requestTimeout = 15 * time.Second
)

var (
	// ErrLocationNotFound means the geocoder returned an empty result set.
	// It is data, not a transport failure: callers turn it into a
	// conversational answer.
	ErrLocationNotFound = errors.New("location not found")

	// ErrUpstream covers network errors and non-2xx responses from any of
	// the three endpoints.
	ErrUpstream = errors.New("weather API failure")
)

// Client calls the three read-only Open-Meteo endpoints. All methods are
// idempotent and safe for concurrent use; results are built fresh per call
// and never cached.
type Client struct {
	httpClient   *http.Client
	logger       *zap.Logger
	geocodingURL string
	forecastURL  string
	archiveURL   string
}

func NewClient(logger *zap.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: requestTimeout},
		logger:       logger,
		geocodingURL: defaultGeocodingURL,
		forecastURL:  defaultForecastURL,
		archiveURL:   defaultArchiveURL,
	}
}

type geocodeResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
		Name      string  `json:"name"`
		Country   string  `json:"country"`
	} `json:"results"`
}

// Geocode resolves a city name to its first matching location.
func (c *Client) Geocode(ctx context.Context, name string) (*Location, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("count", "1")
	params.Set("language", "en")

	body, err := c.get(ctx, "geocode", c.geocodingURL, params)
	if err != nil {
		return nil, err
	}

	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrLocationNotFound, name)
	}

	r := resp.Results[0]
	tz := r.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return &Location{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Timezone:  tz,
		Name:      r.Name,
		Country:   r.Country,
	}, nil
}

// Forecast fetches current and future weather for up to 16 days. Out-of-range
// day counts are clamped rather than rejected.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, timezone string, days int) (*Series, error) {
	if days <= 0 {
		days = defaultForecastDays
	}
	if days > maxForecastDays {
		days = maxForecastDays
	}

	params := c.seriesParams(lat, lon, timezone)
	params.Set("forecast_days", strconv.Itoa(days))

	return c.fetchSeries(ctx, "forecast", c.forecastURL, params, timezone)
}

// History fetches archived weather for an inclusive date range. Dates travel
// as plain calendar days; whether a well-formed range is actually available
// (1940 through roughly five days ago) is the remote source's concern.
func (c *Client) History(ctx context.Context, lat, lon float64, timezone string, start, end time.Time) (*Series, error) {
	params := c.seriesParams(lat, lon, timezone)
	params.Set("start_date", start.Format(dateLayout))
	params.Set("end_date", end.Format(dateLayout))

	return c.fetchSeries(ctx, "archive", c.archiveURL, params, timezone)
}

func (c *Client) seriesParams(lat, lon float64, timezone string) url.Values {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("timezone", timezone)
	params.Set("daily", dailyParams)
	params.Set("hourly", hourlyParams)
	return params
}

type seriesPayload struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Timezone  string        `json:"timezone"`
	Daily     dailyColumns  `json:"daily"`
	Hourly    hourlyColumns `json:"hourly"`
}

func (c *Client) fetchSeries(ctx context.Context, endpoint, baseURL string, params url.Values, fallbackTZ string) (*Series, error) {
	body, err := c.get(ctx, endpoint, baseURL, params)
	if err != nil {
		return nil, err
	}

	var payload seriesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	daily, err := parseDaily(payload.Daily)
	if err != nil {
		return nil, err
	}
	hourly, err := parseHourly(payload.Hourly)
	if err != nil {
		return nil, err
	}

	tz := payload.Timezone
	if tz == "" {
		tz = fallbackTZ
	}
	return &Series{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Timezone:  tz,
		Daily:     daily,
		Hourly:    hourly,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint, baseURL string, params url.Values) ([]byte, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s URL: %w", endpoint, err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	observability.WeatherAPIDuration.WithLabelValues(endpoint).Observe(duration)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("weather API request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s request: %v", ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()

	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, statusLabel(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("weather API non-2xx response",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrUpstream, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	return body, nil
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
