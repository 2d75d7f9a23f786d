package models

import "time"

// Station is one weather-observation site contributing to the index.
// Weight is a relative representativeness weight; weights do not need
// to sum to 1 across the registry.
type Station struct {
	StationID string
	Location  string
	Weight    float64
}

// ClimateNormal is the historical baseline for a station on a calendar
// day (month+day, year-independent). Stddev is guaranteed > 0 by the
// normals loader.
type ClimateNormal struct {
	StationID string
	Month     time.Month
	Day       int
	Mean      float64
	Stddev    float64
}

// StationObservation is one station-day of raw temperatures. Rows only
// exist when both max and min were reported upstream.
type StationObservation struct {
	StationID string
	Date      time.Time
	MaxTemp   float64
	MinTemp   float64
}

// AvgTemp is the daily average temperature, mean of max and min.
func (o StationObservation) AvgTemp() float64 {
	return (o.MaxTemp + o.MinTemp) / 2
}

// Departure is a station-day's standardized deviation from its normal,
// rounded to 3 decimal places.
type Departure struct {
	StationID string
	Date      time.Time
	Value     float64
}

// DailyIndexRecord is one day of the statewide index series.
type DailyIndexRecord struct {
	Date         time.Time `json:"date"`
	StationCount int       `json:"station_count"`
	Index        float64   `json:"daily_index"`
	Color        string    `json:"color"`
}
