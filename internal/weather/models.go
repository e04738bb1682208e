// Package weather is the Open-Meteo client: geocoding, forecast, and
// historical archive lookups, plus the columnar-to-row parsing of their
// time-series payloads.
package weather

import "time"

// Location is a geocoded place. Country is empty when the source provides
// none. Created once per geocode call and never retained between turns.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Name      string  `json:"name"`
	Country   string  `json:"country,omitempty"`
}

// DailyRecord is one day of measurements. Every measurement is independently
// optional: a missing column, a short column, or a JSON null all leave just
// that field nil without affecting siblings.
type DailyRecord struct {
	Date             time.Time `json:"date"`
	TemperatureMax   *float64  `json:"temperature_2m_max"`
	TemperatureMin   *float64  `json:"temperature_2m_min"`
	Sunrise          *string   `json:"sunrise"`
	Sunset           *string   `json:"sunset"`
	SunshineDuration *float64  `json:"sunshine_duration"` // seconds
	DaylightDuration *float64  `json:"daylight_duration"` // seconds
	WindSpeedMax     *float64  `json:"wind_speed_10m_max"`
	PrecipitationSum *float64  `json:"precipitation_sum"`
	WeatherCode      *int      `json:"weather_code"`
}

// HourlyRecord is one hour of measurements, with the same per-field
// nullability contract as DailyRecord.
type HourlyRecord struct {
	Time          time.Time `json:"time"`
	Temperature   *float64  `json:"temperature_2m"`
	WindSpeed     *float64  `json:"wind_speed_10m"`
	Precipitation *float64  `json:"precipitation"`
	WeatherCode   *int      `json:"weather_code"`
	IsDay         *int      `json:"is_day"`
}

// Series is a parsed forecast or archive response. Record order matches the
// source's chronological order; the slices may be empty but are never
// re-sorted or mutated after construction.
type Series struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Timezone  string         `json:"timezone"`
	Daily     []DailyRecord  `json:"daily"`
	Hourly    []HourlyRecord `json:"hourly"`
}
