package refdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ua-snap/swti/internal/models"
)

// ErrIntegrity marks reference-data problems that must stop the process
// at startup rather than let it serve with corrupt baselines.
var ErrIntegrity = errors.New("reference data integrity")

// Registry is the immutable station registry, loaded once at startup.
type Registry struct {
	stations map[string]models.Station
	order    []string
}

// LoadStations reads the station reference table. Expected columns:
// station_id,location,weight with a header row.
func LoadStations(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open stations file: %v", ErrIntegrity, err)
	}
	defer f.Close()
	return ReadStations(f)
}

// ReadStations parses the station table from r.
func ReadStations(r io.Reader) (*Registry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse stations: %v", ErrIntegrity, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: stations table is empty", ErrIntegrity)
	}

	var stations []models.Station
	for i, row := range rows[1:] {
		weight, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: stations row %d: weight %q: %v", ErrIntegrity, i+2, row[2], err)
		}
		stations = append(stations, models.Station{
			StationID: row[0],
			Location:  row[1],
			Weight:    weight,
		})
	}

	return NewRegistry(stations)
}

// NewRegistry builds a registry from already-parsed stations, validating
// uniqueness and positive weights.
func NewRegistry(stations []models.Station) (*Registry, error) {
	reg := &Registry{stations: make(map[string]models.Station, len(stations))}
	for _, st := range stations {
		if st.StationID == "" {
			return nil, fmt.Errorf("%w: station with empty id", ErrIntegrity)
		}
		if st.Weight <= 0 {
			return nil, fmt.Errorf("%w: station %s has non-positive weight %v", ErrIntegrity, st.StationID, st.Weight)
		}
		if _, ok := reg.stations[st.StationID]; ok {
			return nil, fmt.Errorf("%w: duplicate station %s", ErrIntegrity, st.StationID)
		}
		reg.stations[st.StationID] = st
		reg.order = append(reg.order, st.StationID)
	}
	if len(reg.order) == 0 {
		return nil, fmt.Errorf("%w: no stations registered", ErrIntegrity)
	}
	return reg, nil
}

// IDs returns station identifiers in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Lookup returns the station for id, if registered.
func (r *Registry) Lookup(id string) (models.Station, bool) {
	st, ok := r.stations[id]
	return st, ok
}

// Weight returns the weight for id, if registered.
func (r *Registry) Weight(id string) (float64, bool) {
	st, ok := r.stations[id]
	return st.Weight, ok
}

func (r *Registry) Len() int {
	return len(r.order)
}
