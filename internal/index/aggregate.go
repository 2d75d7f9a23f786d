package index

import (
	"math"
	"sort"

	"github.com/ua-snap/swti/internal/models"
	"github.com/ua-snap/swti/internal/refdata"
)

// Sigma0 is the fixed dispersion constant tying the weighted mean
// departure to the index scale: with this sigma, Φ near 1 maps to an
// index near +10, a record-high day.
const Sigma0 = 0.71074

// IndexPrecision is the number of decimals the daily index is rounded to.
const IndexPrecision = 2

// Display colors carried on each record. Policy: binary split on zero;
// days at or below normal are cold-colored, above normal hot-colored.
const (
	ColorCold = "#405bfe"
	ColorHot  = "#ff3d00"
)

// Aggregate groups departures by date and collapses each date into one
// index value via the station-weighted mean and a normal-CDF transform.
// Stations absent from the registry are excluded from both the weighted
// mean and the contributor count. Dates with no contributors are
// omitted. The result is sorted by date ascending.
func Aggregate(departures []models.Departure, registry *refdata.Registry) []models.DailyIndexRecord {
	type accum struct {
		weightedSum float64
		weightTotal float64
		count       int
	}

	byDate := make(map[string]*accum)
	dates := make(map[string]models.Departure)
	for _, dep := range departures {
		weight, ok := registry.Weight(dep.StationID)
		if !ok {
			continue
		}
		key := dep.Date.Format("2006-01-02")
		a := byDate[key]
		if a == nil {
			a = &accum{}
			byDate[key] = a
			dates[key] = dep
		}
		a.weightedSum += weight * dep.Value
		a.weightTotal += weight
		a.count++
	}

	records := make([]models.DailyIndexRecord, 0, len(byDate))
	for key, a := range byDate {
		m := a.weightedSum / a.weightTotal
		idx := indexValue(m)
		color := ColorCold
		if idx > 0 {
			color = ColorHot
		}
		records = append(records, models.DailyIndexRecord{
			Date:         dates[key].Date,
			StationCount: a.count,
			Index:        idx,
			Color:        color,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	return records
}

// indexValue maps a weighted mean departure onto the index scale.
// Φ(-x) = 1-Φ(x), so the transform is odd-symmetric around m = 0 and
// both branches agree exactly at w = 0.5.
func indexValue(m float64) float64 {
	w := normCDF(m, Sigma0)
	var idx float64
	if w < 0.5 {
		idx = -20 * (0.5 - w)
	} else {
		idx = 20 * (w - 0.5)
	}
	return roundTo(idx, IndexPrecision)
}

// normCDF is the CDF of a normal distribution with mean 0 and the given
// standard deviation.
func normCDF(x, sigma float64) float64 {
	return 0.5 * math.Erfc(-x/(sigma*math.Sqrt2))
}
