package refdata

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ua-snap/swti/internal/models"
)

func TestReadStations(t *testing.T) {
	csv := `station_id,location,weight
USW00026451,Anchorage,1.0
USW00025309,Juneau,0.5
`
	reg, err := ReadStations(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadStations: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}

	ids := reg.IDs()
	if ids[0] != "USW00026451" || ids[1] != "USW00025309" {
		t.Errorf("IDs() = %v, want file order", ids)
	}

	st, ok := reg.Lookup("USW00025309")
	if !ok {
		t.Fatal("Lookup(USW00025309) = false")
	}
	if st.Location != "Juneau" {
		t.Errorf("Location = %q, want Juneau", st.Location)
	}
	if st.Weight != 0.5 {
		t.Errorf("Weight = %v, want 0.5", st.Weight)
	}

	if _, ok := reg.Weight("UNKNOWN"); ok {
		t.Error("Weight(UNKNOWN) should not be found")
	}
}

func TestReadStations_Invalid(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty table", "station_id,location,weight\n"},
		{"bad weight", "station_id,location,weight\nUSW1,Nome,abc\n"},
		{"zero weight", "station_id,location,weight\nUSW1,Nome,0\n"},
		{"negative weight", "station_id,location,weight\nUSW1,Nome,-1.5\n"},
		{"duplicate id", "station_id,location,weight\nUSW1,Nome,1.0\nUSW1,Nome,2.0\n"},
		{"wrong column count", "station_id,location,weight\nUSW1,Nome\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadStations(strings.NewReader(tt.csv))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrIntegrity) {
				t.Errorf("error %v should wrap ErrIntegrity", err)
			}
		})
	}
}

func TestReadNormals(t *testing.T) {
	csv := `station_id,month,day,mean,stddev
USW00026451,1,15,-7.2,5.3
USW00026451,2,29,-5.1,4.8
USW00026411,1,15,-9.8,6.1
`
	normals, err := ReadNormals(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadNormals: %v", err)
	}
	if normals.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", normals.Len())
	}

	norm, ok := normals.Lookup("USW00026451", time.January, 15)
	if !ok {
		t.Fatal("Lookup(USW00026451, Jan 15) = false")
	}
	if norm.Mean != -7.2 || norm.Stddev != 5.3 {
		t.Errorf("normal = %+v, want mean -7.2 stddev 5.3", norm)
	}

	// Feb 29 is a first-class calendar day when the baseline covers it.
	if _, ok := normals.Lookup("USW00026451", time.February, 29); !ok {
		t.Error("Lookup(Feb 29) = false, want leap-day normal found")
	}

	if _, ok := normals.Lookup("USW00026411", time.February, 29); ok {
		t.Error("Lookup(USW00026411, Feb 29) = true, want miss")
	}
}

func TestReadNormals_Invalid(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty table", "station_id,month,day,mean,stddev\n"},
		{"zero stddev", "station_id,month,day,mean,stddev\nUSW1,1,1,0.0,0\n"},
		{"negative stddev", "station_id,month,day,mean,stddev\nUSW1,1,1,0.0,-2.5\n"},
		{"bad month", "station_id,month,day,mean,stddev\nUSW1,13,1,0.0,1.0\n"},
		{"bad day", "station_id,month,day,mean,stddev\nUSW1,1,0,0.0,1.0\n"},
		{"bad mean", "station_id,month,day,mean,stddev\nUSW1,1,1,x,1.0\n"},
		{"duplicate day", "station_id,month,day,mean,stddev\nUSW1,1,1,0.0,1.0\nUSW1,1,1,0.5,1.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadNormals(strings.NewReader(tt.csv))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrIntegrity) {
				t.Errorf("error %v should wrap ErrIntegrity", err)
			}
		})
	}
}

func TestNewNormals_ValidatesEveryRow(t *testing.T) {
	normals := []models.ClimateNormal{
		{StationID: "USW1", Month: time.March, Day: 1, Mean: -2, Stddev: 4},
		{StationID: "USW1", Month: time.March, Day: 2, Mean: -2, Stddev: 0},
	}
	if _, err := NewNormals(normals); !errors.Is(err, ErrIntegrity) {
		t.Errorf("NewNormals with zero stddev = %v, want ErrIntegrity", err)
	}
}
