// Package acis fetches daily max/min temperature observations from the
// RCC ACIS MultiStnData service for all registered stations in one
// batched request.
package acis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ua-snap/swti/internal/httputil"
	"github.com/ua-snap/swti/internal/metrics"
	"github.com/ua-snap/swti/internal/models"
	"github.com/ua-snap/swti/internal/refdata"
)

const DefaultBaseURL = "http://data.rcc-acis.org/MultiStnData"

// missingValue is the upstream sentinel for a day with no reading.
const missingValue = "M"

type Client struct {
	baseURL  string
	registry *refdata.Registry
	client   *http.Client
}

func NewClient(baseURL string, registry *refdata.Registry) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		registry: registry,
		client:   httputil.NewClient(),
	}
}

// Response is the MultiStnData payload: one block per station, each with
// identifying metadata and a dense per-day array of [maxt, mint] values
// aligned to the requested date range.
type Response struct {
	Data []StationBlock `json:"data"`
}

type StationBlock struct {
	Meta StationMeta `json:"meta"`
	Data [][]string  `json:"data"`
}

type StationMeta struct {
	Name string   `json:"name"`
	Sids []string `json:"sids"`
}

// FetchDaily issues one batched request for daily maxt/mint across all
// registered stations between start and end inclusive, and returns one
// StationObservation per (station, date) with both values present.
// Transport failure, a non-2xx status, malformed JSON, or an empty
// result set fails the whole run; no partial output is produced.
func (c *Client) FetchDaily(ctx context.Context, start, end time.Time) ([]models.StationObservation, error) {
	q := url.Values{}
	q.Set("sids", strings.Join(c.registry.IDs(), ","))
	q.Set("sdate", start.Format("2006-01-02"))
	q.Set("edate", end.Format("2006-01-02"))
	q.Set("elems", "maxt,mint")
	q.Set("output", "json")
	reqURL := c.baseURL + "?" + q.Encode()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		began := time.Now()
		resp, err := c.client.Do(req)
		metrics.ACISRequestLatency.Observe(time.Since(began).Seconds())
		if err != nil {
			metrics.ACISRequestsTotal.WithLabelValues("error").Inc()
			return backoff.Permanent(fmt.Errorf("fetch observations: %w", err))
		}
		defer resp.Body.Close()
		metrics.ACISRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("upstream busy: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch observations: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	var data Response
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if len(data.Data) == 0 {
		return nil, fmt.Errorf("empty result set for %d stations", c.registry.Len())
	}

	var observations []models.StationObservation
	for _, block := range data.Data {
		stationID, ok := c.matchStation(block.Meta)
		if !ok {
			log.Printf("acis: skipping unmatched station %q (sids %v)", block.Meta.Name, block.Meta.Sids)
			continue
		}
		observations = append(observations, parseDays(stationID, start, block.Data)...)
	}

	return observations, nil
}

// matchStation maps a response metadata block onto a registered station.
// ACIS sids carry a network-type suffix ("USW00026451 6"); the first
// token is the identifier proper.
func (c *Client) matchStation(meta StationMeta) (string, bool) {
	for _, sid := range meta.Sids {
		id, _, _ := strings.Cut(sid, " ")
		if _, ok := c.registry.Lookup(id); ok {
			return id, true
		}
	}
	return "", false
}

// parseDays converts a station's dense day array into observations,
// dropping any day where max or min is missing. Values arrive as
// strings; the "M" sentinel never crosses this boundary.
func parseDays(stationID string, start time.Time, days [][]string) []models.StationObservation {
	var observations []models.StationObservation
	for i, day := range days {
		if len(day) < 2 {
			continue
		}
		maxt := parseValue(day[0])
		mint := parseValue(day[1])
		if maxt == nil || mint == nil {
			continue
		}
		observations = append(observations, models.StationObservation{
			StationID: stationID,
			Date:      start.AddDate(0, 0, i),
			MaxTemp:   *maxt,
			MinTemp:   *mint,
		})
	}
	return observations
}

func parseValue(s string) *float64 {
	if s == missingValue || s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}
