// Package index turns raw station observations into the daily statewide
// temperature index series.
package index

import (
	"math"

	"github.com/ua-snap/swti/internal/models"
	"github.com/ua-snap/swti/internal/refdata"
)

// DeparturePrecision is the number of decimals a standardized departure
// is rounded to.
const DeparturePrecision = 3

// Normalize converts each observation into a standardized departure from
// that station's normal for the matching calendar day (month+day, year
// ignored). Observations with no matching normal are dropped; that
// covers leap-day alignment and incomplete normal coverage. Feb 29
// observations use the Feb 29 normal when the table carries one.
func Normalize(observations []models.StationObservation, normals *refdata.Normals) []models.Departure {
	var departures []models.Departure
	for _, obs := range observations {
		norm, ok := normals.Lookup(obs.StationID, obs.Date.Month(), obs.Date.Day())
		if !ok {
			continue
		}
		departures = append(departures, models.Departure{
			StationID: obs.StationID,
			Date:      obs.Date,
			Value:     roundTo((obs.AvgTemp()-norm.Mean)/norm.Stddev, DeparturePrecision),
		})
	}
	return departures
}

func roundTo(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
