package acis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ua-snap/swti/internal/models"
	"github.com/ua-snap/swti/internal/refdata"
)

func testRegistry(t *testing.T) *refdata.Registry {
	t.Helper()
	reg, err := refdata.NewRegistry([]models.Station{
		{StationID: "USW00026451", Location: "Anchorage", Weight: 1.0},
		{StationID: "USW00026411", Location: "Fairbanks", Weight: 1.0},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFetchDaily(t *testing.T) {
	payload := `{
		"data": [
			{
				"meta": {"name": "ANCHORAGE INTL AP", "sids": ["26451 13", "USW00026451 6", "ANC 5"]},
				"data": [["30", "18"], ["M", "20"], ["28", "M"], ["25", "15"]]
			},
			{
				"meta": {"name": "FAIRBANKS INTL AP", "sids": ["USW00026411 6"]},
				"data": [["10", "-5"], ["12", "-2"], ["M", "M"], ["8", "-10"]]
			},
			{
				"meta": {"name": "SOMEWHERE ELSE", "sids": ["99999 13"]},
				"data": [["50", "40"], ["50", "40"], ["50", "40"], ["50", "40"]]
			}
		]
	}`

	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"sids":   r.URL.Query().Get("sids"),
			"sdate":  r.URL.Query().Get("sdate"),
			"edate":  r.URL.Query().Get("edate"),
			"elems":  r.URL.Query().Get("elems"),
			"output": r.URL.Query().Get("output"),
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testRegistry(t))
	start := date(2026, time.August, 1)
	end := date(2026, time.August, 4)

	observations, err := client.FetchDaily(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}

	if gotQuery["sids"] != "USW00026451,USW00026411" {
		t.Errorf("sids = %q, want comma-joined registry ids", gotQuery["sids"])
	}
	if gotQuery["sdate"] != "2026-08-01" || gotQuery["edate"] != "2026-08-04" {
		t.Errorf("window = %s..%s, want 2026-08-01..2026-08-04", gotQuery["sdate"], gotQuery["edate"])
	}
	if gotQuery["elems"] != "maxt,mint" || gotQuery["output"] != "json" {
		t.Errorf("elems/output = %q/%q", gotQuery["elems"], gotQuery["output"])
	}

	// Anchorage: days 2 and 3 have a missing value and drop entirely,
	// even though the other element was present. Fairbanks: day 3 drops.
	// The unmatched third station contributes nothing.
	want := []models.StationObservation{
		{StationID: "USW00026451", Date: date(2026, time.August, 1), MaxTemp: 30, MinTemp: 18},
		{StationID: "USW00026451", Date: date(2026, time.August, 4), MaxTemp: 25, MinTemp: 15},
		{StationID: "USW00026411", Date: date(2026, time.August, 1), MaxTemp: 10, MinTemp: -5},
		{StationID: "USW00026411", Date: date(2026, time.August, 2), MaxTemp: 12, MinTemp: -2},
		{StationID: "USW00026411", Date: date(2026, time.August, 4), MaxTemp: 8, MinTemp: -10},
	}
	if len(observations) != len(want) {
		t.Fatalf("len(observations) = %d, want %d: %+v", len(observations), len(want), observations)
	}
	for i, w := range want {
		got := observations[i]
		if got.StationID != w.StationID || !got.Date.Equal(w.Date) || got.MaxTemp != w.MaxTemp || got.MinTemp != w.MinTemp {
			t.Errorf("observations[%d] = %+v, want %+v", i, got, w)
		}
	}
}

func TestFetchDaily_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testRegistry(t))
	_, err := client.FetchDaily(context.Background(), date(2026, time.August, 1), date(2026, time.August, 2))
	if err == nil {
		t.Fatal("expected error for empty result set")
	}
	if !strings.Contains(err.Error(), "empty result set") {
		t.Errorf("error = %v, want empty result set", err)
	}
}

func TestFetchDaily_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testRegistry(t))
	_, err := client.FetchDaily(context.Background(), date(2026, time.August, 1), date(2026, time.August, 2))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestFetchDaily_ErrorStatusNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testRegistry(t))
	_, err := client.FetchDaily(context.Background(), date(2026, time.August, 1), date(2026, time.August, 2))
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (client errors are permanent)", calls)
	}
}

func TestFetchDaily_RetriesBusyUpstream(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data": [{"meta": {"sids": ["USW00026451 6"]}, "data": [["30", "18"]]}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testRegistry(t))
	observations, err := client.FetchDaily(context.Background(), date(2026, time.August, 1), date(2026, time.August, 1))
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if calls < 2 {
		t.Errorf("calls = %d, want retry after 503", calls)
	}
	if len(observations) != 1 {
		t.Fatalf("len(observations) = %d, want 1", len(observations))
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"M", nil},
		{"", nil},
		{"T", nil},
		{"32", ptr(32.0)},
		{"-14.5", ptr(-14.5)},
		{" 20 ", ptr(20.0)},
	}
	for _, tt := range tests {
		got := parseValue(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseValue(%q) = %v, want nil", tt.in, *got)
		case tt.want != nil && got == nil:
			t.Errorf("parseValue(%q) = nil, want %v", tt.in, *tt.want)
		case tt.want != nil && got != nil && *got != *tt.want:
			t.Errorf("parseValue(%q) = %v, want %v", tt.in, *got, *tt.want)
		}
	}
}

func ptr(f float64) *float64 { return &f }
