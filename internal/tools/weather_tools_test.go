package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-assistant/internal/weather"
)

// fakeWeather records call arguments and returns canned results.
type fakeWeather struct {
	location *weather.Location
	series   *weather.Series
	err      error

	gotName  string
	gotDays  int
	gotStart time.Time
	gotEnd   time.Time
}

func (f *fakeWeather) Geocode(ctx context.Context, name string) (*weather.Location, error) {
	f.gotName = name
	return f.location, f.err
}

func (f *fakeWeather) Forecast(ctx context.Context, lat, lon float64, timezone string, days int) (*weather.Series, error) {
	f.gotDays = days
	return f.series, f.err
}

func (f *fakeWeather) History(ctx context.Context, lat, lon float64, timezone string, start, end time.Time) (*weather.Series, error) {
	f.gotStart, f.gotEnd = start, end
	return f.series, f.err
}

func TestGeocodeTool(t *testing.T) {
	t.Run("returns location JSON", func(t *testing.T) {
		fake := &fakeWeather{location: &weather.Location{
			Latitude: 55.68, Longitude: 12.57, Timezone: "Europe/Copenhagen", Name: "Copenhagen",
		}}
		tool := NewGeocodeTool(fake)

		out, err := tool.Execute(context.Background(), `{"city_name": "Copenhagen"}`)
		require.NoError(t, err)
		assert.Equal(t, "Copenhagen", fake.gotName)

		var loc weather.Location
		require.NoError(t, json.Unmarshal([]byte(out), &loc))
		assert.Equal(t, 55.68, loc.Latitude)
		assert.Equal(t, "Europe/Copenhagen", loc.Timezone)
	})

	t.Run("not-found is a JSON payload, not an error", func(t *testing.T) {
		fake := &fakeWeather{err: weather.ErrLocationNotFound}
		tool := NewGeocodeTool(fake)

		out, err := tool.Execute(context.Background(), `{"city_name": "Atlantis"}`)
		require.NoError(t, err)

		var payload map[string]string
		require.NoError(t, json.Unmarshal([]byte(out), &payload))
		assert.Equal(t, "Could not find location: Atlantis", payload["error"])
	})

	t.Run("transport failure is an error", func(t *testing.T) {
		fake := &fakeWeather{err: errors.New("connection refused")}
		tool := NewGeocodeTool(fake)

		_, err := tool.Execute(context.Background(), `{"city_name": "Copenhagen"}`)
		require.Error(t, err)
	})

	t.Run("empty city name is an error", func(t *testing.T) {
		tool := NewGeocodeTool(&fakeWeather{})
		_, err := tool.Execute(context.Background(), `{}`)
		require.Error(t, err)
	})
}

func TestForecastTool(t *testing.T) {
	t.Run("passes forecast days through", func(t *testing.T) {
		fake := &fakeWeather{series: &weather.Series{Timezone: "UTC"}}
		tool := NewForecastTool(fake)

		out, err := tool.Execute(context.Background(), `{"latitude": 1, "longitude": 2, "timezone": "UTC", "forecast_days": 3}`)
		require.NoError(t, err)
		assert.Equal(t, 3, fake.gotDays)
		assert.Contains(t, out, `"timezone":"UTC"`)
	})

	t.Run("malformed arguments are an error", func(t *testing.T) {
		tool := NewForecastTool(&fakeWeather{})
		_, err := tool.Execute(context.Background(), `{"latitude": "north"}`)
		require.Error(t, err)
	})
}

func TestHistoryTool(t *testing.T) {
	validArgs := `{"latitude": 1, "longitude": 2, "timezone": "UTC", "start_date": "2024-01-01", "end_date": "2024-01-31"}`

	t.Run("parses ISO dates at the boundary", func(t *testing.T) {
		fake := &fakeWeather{series: &weather.Series{}}
		tool := NewHistoryTool(fake)

		_, err := tool.Execute(context.Background(), validArgs)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), fake.gotStart)
		assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), fake.gotEnd)
	})

	t.Run("malformed start date is a correctable error", func(t *testing.T) {
		tool := NewHistoryTool(&fakeWeather{})
		_, err := tool.Execute(context.Background(), `{"latitude": 1, "longitude": 2, "timezone": "UTC", "start_date": "Jan 1", "end_date": "2024-01-31"}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "YYYY-MM-DD")
	})

	t.Run("malformed end date is a correctable error", func(t *testing.T) {
		tool := NewHistoryTool(&fakeWeather{})
		_, err := tool.Execute(context.Background(), `{"latitude": 1, "longitude": 2, "timezone": "UTC", "start_date": "2024-01-01", "end_date": "soon"}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "end_date")
	})
}

func TestToolDefinitions(t *testing.T) {
	geocode := NewGeocodeTool(&fakeWeather{}).Definition()
	forecast := NewForecastTool(&fakeWeather{}).Definition()
	history := NewHistoryTool(&fakeWeather{}).Definition()

	assert.Equal(t, "get_location_coordinates", geocode.Function.Name)
	assert.Equal(t, "get_weather_forecast", forecast.Function.Name)
	assert.Equal(t, "get_historical_weather", history.Function.Name)

	assert.Equal(t, "object", history.Function.Parameters.Type)
	assert.Contains(t, history.Function.Parameters.Required, "start_date")
	assert.Contains(t, history.Function.Parameters.Required, "end_date")
}
