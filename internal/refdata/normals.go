package refdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ua-snap/swti/internal/models"
)

type normalKey struct {
	stationID string
	month     time.Month
	day       int
}

// Normals is the immutable per-station, per-calendar-day baseline table.
// Every stored normal has stddev > 0; that is validated once at load so
// the departure formula never divides by a non-positive value.
type Normals struct {
	byKey map[normalKey]models.ClimateNormal
}

// LoadNormals reads the climate normals table. Expected columns:
// station_id,month,day,mean,stddev with a header row. One row per
// (station, calendar day); the table covers the 366-day baseline cycle
// so Feb 29 has its own normal where the baseline provides one.
func LoadNormals(path string) (*Normals, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open normals file: %v", ErrIntegrity, err)
	}
	defer f.Close()
	return ReadNormals(f)
}

// ReadNormals parses the normals table from r.
func ReadNormals(r io.Reader) (*Normals, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read normals header: %v", ErrIntegrity, err)
	}
	_ = header

	var normals []models.ClimateNormal
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: parse normals row %d: %v", ErrIntegrity, line, err)
		}

		month, err := strconv.Atoi(row[1])
		if err != nil || month < 1 || month > 12 {
			return nil, fmt.Errorf("%w: normals row %d: bad month %q", ErrIntegrity, line, row[1])
		}
		day, err := strconv.Atoi(row[2])
		if err != nil || day < 1 || day > 31 {
			return nil, fmt.Errorf("%w: normals row %d: bad day %q", ErrIntegrity, line, row[2])
		}
		mean, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: normals row %d: mean %q: %v", ErrIntegrity, line, row[3], err)
		}
		stddev, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: normals row %d: stddev %q: %v", ErrIntegrity, line, row[4], err)
		}

		normals = append(normals, models.ClimateNormal{
			StationID: row[0],
			Month:     time.Month(month),
			Day:       day,
			Mean:      mean,
			Stddev:    stddev,
		})
	}

	return NewNormals(normals)
}

// NewNormals builds the store from already-parsed normals, validating
// positive stddev and one record per (station, calendar day).
func NewNormals(normals []models.ClimateNormal) (*Normals, error) {
	n := &Normals{byKey: make(map[normalKey]models.ClimateNormal, len(normals))}
	for _, norm := range normals {
		if norm.Stddev <= 0 {
			return nil, fmt.Errorf("%w: normal %s %02d-%02d has non-positive stddev %v",
				ErrIntegrity, norm.StationID, norm.Month, norm.Day, norm.Stddev)
		}
		key := normalKey{norm.StationID, norm.Month, norm.Day}
		if _, ok := n.byKey[key]; ok {
			return nil, fmt.Errorf("%w: duplicate normal for %s %02d-%02d",
				ErrIntegrity, norm.StationID, norm.Month, norm.Day)
		}
		n.byKey[key] = norm
	}
	if len(n.byKey) == 0 {
		return nil, fmt.Errorf("%w: normals table is empty", ErrIntegrity)
	}
	return n, nil
}

// Lookup returns the normal for a station on a calendar day, ignoring
// year. A miss is an expected boundary case (leap-day alignment or
// incomplete coverage), not an error.
func (n *Normals) Lookup(stationID string, month time.Month, day int) (models.ClimateNormal, bool) {
	norm, ok := n.byKey[normalKey{stationID, month, day}]
	return norm, ok
}

func (n *Normals) Len() int {
	return len(n.byKey)
}
