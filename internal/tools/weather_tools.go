package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"weather-assistant/internal/observability"
	"weather-assistant/internal/weather"
)

const toolDateLayout = "2006-01-02"

// WeatherService is the slice of the weather client the tools need.
type WeatherService interface {
	Geocode(ctx context.Context, name string) (*weather.Location, error)
	Forecast(ctx context.Context, lat, lon float64, timezone string, days int) (*weather.Series, error)
	History(ctx context.Context, lat, lon float64, timezone string, start, end time.Time) (*weather.Series, error)
}

// --- Geocoding ---

// GeocodeTool resolves a city name to coordinates and a timezone. The model
// is instructed to call this before any weather lookup.
type GeocodeTool struct {
	service WeatherService
}

var _ Executor = (*GeocodeTool)(nil)

func NewGeocodeTool(service WeatherService) *GeocodeTool {
	return &GeocodeTool{service: service}
}

func (t *GeocodeTool) Definition() Tool {
	return NewFunctionTool(
		"get_location_coordinates",
		"Look up the latitude, longitude, and timezone for a city name. Always call this first before fetching weather data.",
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"city_name": {
					Type:        "string",
					Description: "Name of the city to geocode, e.g. \"Copenhagen\" or \"London\"",
				},
			},
			Required: []string{"city_name"},
		},
	)
}

func (t *GeocodeTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		CityName string `json:"city_name"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return fail("get_location_coordinates", fmt.Errorf("invalid arguments: %w", err))
	}
	if args.CityName == "" {
		return fail("get_location_coordinates", errors.New("city_name cannot be empty"))
	}

	loc, err := t.service.Geocode(ctx, args.CityName)
	if errors.Is(err, weather.ErrLocationNotFound) {
		// Not-found is data the model should react to conversationally,
		// not a correctable failure.
		observability.ToolExecutionsTotal.WithLabelValues("get_location_coordinates", "not_found").Inc()
		return marshalResult(map[string]string{
			"error": fmt.Sprintf("Could not find location: %s", args.CityName),
		})
	}
	if err != nil {
		return fail("get_location_coordinates", err)
	}

	observability.ToolExecutionsTotal.WithLabelValues("get_location_coordinates", "success").Inc()
	return marshalResult(loc)
}

// --- Forecast ---

// ForecastTool fetches current weather and a forecast window of 1-16 days.
type ForecastTool struct {
	service WeatherService
}

var _ Executor = (*ForecastTool)(nil)

func NewForecastTool(service WeatherService) *ForecastTool {
	return &ForecastTool{service: service}
}

func (t *ForecastTool) Definition() Tool {
	return NewFunctionTool(
		"get_weather_forecast",
		"Get current weather and forecast for a location. Use this for today's weather and forecasts up to 16 days ahead.",
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"latitude":  {Type: "number", Description: "Location latitude from geocoding"},
				"longitude": {Type: "number", Description: "Location longitude from geocoding"},
				"timezone":  {Type: "string", Description: "Location timezone from geocoding, e.g. \"Europe/Copenhagen\""},
				"forecast_days": {
					Type:        "integer",
					Description: "Number of days to forecast (1-16, default 7)",
				},
			},
			Required: []string{"latitude", "longitude", "timezone"},
		},
	)
}

func (t *ForecastTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Latitude     float64 `json:"latitude"`
		Longitude    float64 `json:"longitude"`
		Timezone     string  `json:"timezone"`
		ForecastDays int     `json:"forecast_days"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return fail("get_weather_forecast", fmt.Errorf("invalid arguments: %w", err))
	}

	series, err := t.service.Forecast(ctx, args.Latitude, args.Longitude, args.Timezone, args.ForecastDays)
	if err != nil {
		return fail("get_weather_forecast", err)
	}

	observability.ToolExecutionsTotal.WithLabelValues("get_weather_forecast", "success").Inc()
	return marshalResult(series)
}

// --- Historical archive ---

// HistoryTool fetches archived weather for a date range. Malformed dates are
// rejected here at the boundary so the model gets actionable feedback instead
// of a failure from deep inside the client.
type HistoryTool struct {
	service WeatherService
}

var _ Executor = (*HistoryTool)(nil)

func NewHistoryTool(service WeatherService) *HistoryTool {
	return &HistoryTool{service: service}
}

func (t *HistoryTool) Definition() Tool {
	return NewFunctionTool(
		"get_historical_weather",
		"Get historical weather data for a location and date range. Use this for past weather and comparisons. Data is available from 1940 to about 5 days ago.",
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"latitude":   {Type: "number", Description: "Location latitude from geocoding"},
				"longitude":  {Type: "number", Description: "Location longitude from geocoding"},
				"timezone":   {Type: "string", Description: "Location timezone from geocoding, e.g. \"Europe/Copenhagen\""},
				"start_date": {Type: "string", Description: "Start date in ISO format (YYYY-MM-DD)"},
				"end_date":   {Type: "string", Description: "End date in ISO format (YYYY-MM-DD)"},
			},
			Required: []string{"latitude", "longitude", "timezone", "start_date", "end_date"},
		},
	)
}

func (t *HistoryTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
		StartDate string  `json:"start_date"`
		EndDate   string  `json:"end_date"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return fail("get_historical_weather", fmt.Errorf("invalid arguments: %w", err))
	}

	start, err := time.Parse(toolDateLayout, args.StartDate)
	if err != nil {
		return fail("get_historical_weather", fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", args.StartDate))
	}
	end, err := time.Parse(toolDateLayout, args.EndDate)
	if err != nil {
		return fail("get_historical_weather", fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", args.EndDate))
	}

	series, err := t.service.History(ctx, args.Latitude, args.Longitude, args.Timezone, start, end)
	if err != nil {
		return fail("get_historical_weather", err)
	}

	observability.ToolExecutionsTotal.WithLabelValues("get_historical_weather", "success").Inc()
	return marshalResult(series)
}

// --- shared helpers ---

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	return string(data), nil
}

func fail(tool string, err error) (string, error) {
	observability.ToolExecutionsTotal.WithLabelValues(tool, "error").Inc()
	return "", err
}
