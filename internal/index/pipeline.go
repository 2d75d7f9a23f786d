package index

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ua-snap/swti/internal/metrics"
	"github.com/ua-snap/swti/internal/models"
	"github.com/ua-snap/swti/internal/refdata"
)

// WindowDays is the fixed length of the trailing retrieval window.
const WindowDays = 732

// Fetcher retrieves raw daily observations for all registered stations
// over a date range.
type Fetcher interface {
	FetchDaily(ctx context.Context, start, end time.Time) ([]models.StationObservation, error)
}

// Pipeline runs one synchronous fetch -> normalize -> aggregate pass and
// produces a fresh daily index series. It holds no mutable state.
type Pipeline struct {
	fetcher  Fetcher
	normals  *refdata.Normals
	registry *refdata.Registry
	clock    clockwork.Clock
	loc      *time.Location
}

func NewPipeline(fetcher Fetcher, normals *refdata.Normals, registry *refdata.Registry, clock clockwork.Clock, loc *time.Location) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		normals:  normals,
		registry: registry,
		clock:    clock,
		loc:      loc,
	}
}

// Window returns the trailing retrieval window: WindowDays days ending
// yesterday. Today is excluded because its observations are incomplete.
func (p *Pipeline) Window() (start, end time.Time) {
	now := p.clock.Now().In(p.loc)
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc).AddDate(0, 0, -1)
	start = end.AddDate(0, 0, -(WindowDays - 1))
	return start, end
}

// Run executes the full pipeline. Any fetch failure, or a window with no
// usable station-days at all, fails the run; partial degraded output is
// never produced.
func (p *Pipeline) Run(ctx context.Context) ([]models.DailyIndexRecord, error) {
	start, end := p.Window()

	observations, err := p.fetcher.FetchDaily(ctx, start, end)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("fetch_error").Inc()
		return nil, fmt.Errorf("fetch %s..%s: %w", start.Format("2006-01-02"), end.Format("2006-01-02"), err)
	}

	departures := Normalize(observations, p.normals)
	records := Aggregate(departures, p.registry)
	if len(records) == 0 {
		metrics.PipelineRunsTotal.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("no usable observations in %s..%s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	metrics.PipelineRunsTotal.WithLabelValues("ok").Inc()
	return records, nil
}
