package weather

import (
	"fmt"
	"time"
)

// Open-Meteo returns dates as plain calendar days and hourly timestamps in
// location-local time without an offset.
const (
	dateLayout     = "2006-01-02"
	hourlyLayout   = "2006-01-02T15:04"
	hourlyLayoutHM = "2006-01-02T15:04:05"
)

// dailyColumns mirrors the column-oriented daily block of a forecast or
// archive response. Pointer-element slices keep JSON nulls distinguishable
// from zero values.
type dailyColumns struct {
	Time             []string   `json:"time"`
	TemperatureMax   []*float64 `json:"temperature_2m_max"`
	TemperatureMin   []*float64 `json:"temperature_2m_min"`
	Sunrise          []*string  `json:"sunrise"`
	Sunset           []*string  `json:"sunset"`
	SunshineDuration []*float64 `json:"sunshine_duration"`
	DaylightDuration []*float64 `json:"daylight_duration"`
	WindSpeedMax     []*float64 `json:"wind_speed_10m_max"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
	WeatherCode      []*int     `json:"weather_code"`
}

// hourlyColumns mirrors the column-oriented hourly block.
type hourlyColumns struct {
	Time          []string   `json:"time"`
	Temperature   []*float64 `json:"temperature_2m"`
	WindSpeed     []*float64 `json:"wind_speed_10m"`
	Precipitation []*float64 `json:"precipitation"`
	WeatherCode   []*int     `json:"weather_code"`
	IsDay         []*int     `json:"is_day"`
}

// at returns the column value for row i, or nil when the column is absent or
// shorter than the time array. The returned pointer may itself be nil when
// the source sent an explicit null.
func at[T any](col []*T, i int) *T {
	if i < len(col) {
		return col[i]
	}
	return nil
}

// parseDaily converts a columnar daily block into row records. The time
// array is authoritative for the row count; an empty or absent time array
// yields no records and no error. Only an unparsable date is an error.
func parseDaily(cols dailyColumns) ([]DailyRecord, error) {
	if len(cols.Time) == 0 {
		return nil, nil
	}

	records := make([]DailyRecord, 0, len(cols.Time))
	for i, d := range cols.Time {
		date, err := time.Parse(dateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("parse daily date %q: %w", d, err)
		}
		records = append(records, DailyRecord{
			Date:             date,
			TemperatureMax:   at(cols.TemperatureMax, i),
			TemperatureMin:   at(cols.TemperatureMin, i),
			Sunrise:          at(cols.Sunrise, i),
			Sunset:           at(cols.Sunset, i),
			SunshineDuration: at(cols.SunshineDuration, i),
			DaylightDuration: at(cols.DaylightDuration, i),
			WindSpeedMax:     at(cols.WindSpeedMax, i),
			PrecipitationSum: at(cols.PrecipitationSum, i),
			WeatherCode:      at(cols.WeatherCode, i),
		})
	}
	return records, nil
}

// parseHourly converts a columnar hourly block into row records under the
// same contract as parseDaily.
func parseHourly(cols hourlyColumns) ([]HourlyRecord, error) {
	if len(cols.Time) == 0 {
		return nil, nil
	}

	records := make([]HourlyRecord, 0, len(cols.Time))
	for i, t := range cols.Time {
		ts, err := parseHourlyTime(t)
		if err != nil {
			return nil, fmt.Errorf("parse hourly time %q: %w", t, err)
		}
		records = append(records, HourlyRecord{
			Time:          ts,
			Temperature:   at(cols.Temperature, i),
			WindSpeed:     at(cols.WindSpeed, i),
			Precipitation: at(cols.Precipitation, i),
			WeatherCode:   at(cols.WeatherCode, i),
			IsDay:         at(cols.IsDay, i),
		})
	}
	return records, nil
}

func parseHourlyTime(s string) (time.Time, error) {
	ts, err := time.Parse(hourlyLayout, s)
	if err == nil {
		return ts, nil
	}
	// Some endpoints include seconds.
	return time.Parse(hourlyLayoutHM, s)
}
