package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/ua-snap/swti/internal/acis"
	"github.com/ua-snap/swti/internal/api"
	"github.com/ua-snap/swti/internal/cache"
	"github.com/ua-snap/swti/internal/index"
	"github.com/ua-snap/swti/internal/models"
	"github.com/ua-snap/swti/internal/refdata"
	"github.com/ua-snap/swti/internal/store"
)

var cli struct {
	Port         string   `env:"PORT" default:"8080" help:"HTTP server port."`
	ACISURL      string   `name:"acis-url" env:"ACIS_API_URL" default:"http://data.rcc-acis.org/MultiStnData" help:"Upstream ACIS API endpoint."`
	CacheExpire  int      `env:"DASH_CACHE_EXPIRE" default:"43200" help:"Cache time-to-live in seconds."`
	StationsFile string   `env:"SWTI_STATIONS_FILE" default:"data/stations.csv" help:"Station reference table (id, location, weight)."`
	NormalsFile  string   `env:"SWTI_NORMALS_FILE" default:"data/normals.csv" help:"Climate normals table (id, month, day, mean, stddev)."`
	Stations     []string `env:"SWTI_STATIONS" help:"Restrict to these station ids (must exist in the stations file)."`
	DB           string   `env:"SWTI_DB" default:"data/swti.db" help:"Path to SQLite database."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("swti"),
		kong.Description("Alaska statewide daily temperature index service."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	registry, err := refdata.LoadStations(cli.StationsFile)
	if err != nil {
		log.Fatalf("load stations: %v", err)
	}
	if len(cli.Stations) > 0 {
		var stations []models.Station
		for _, id := range cli.Stations {
			st, ok := registry.Lookup(id)
			if !ok {
				log.Fatalf("station override %s not in %s", id, cli.StationsFile)
			}
			stations = append(stations, st)
		}
		registry, err = refdata.NewRegistry(stations)
		if err != nil {
			log.Fatalf("station override: %v", err)
		}
	}
	log.Printf("registered %d stations", registry.Len())

	normals, err := refdata.LoadNormals(cli.NormalsFile)
	if err != nil {
		log.Fatalf("load normals: %v", err)
	}
	log.Printf("loaded %d climate normals", normals.Len())

	loc, err := time.LoadLocation("America/Anchorage")
	if err != nil {
		log.Printf("warning: could not load America/Anchorage timezone, using UTC: %v", err)
		loc = time.UTC
	}

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	clock := clockwork.NewRealClock()
	fetcher := acis.NewClient(cli.ACISURL, registry)
	pipeline := index.NewPipeline(fetcher, normals, registry, clock, loc)

	c := cache.New(pipeline.Run, time.Duration(cli.CacheExpire)*time.Second, clock)
	c.SetStoreFunc(func(records []models.DailyIndexRecord, computedAt time.Time) {
		if err := st.ReplaceSeries(records, computedAt); err != nil {
			log.Printf("persist series: %v", err)
		}
	})

	if records, computedAt, err := st.GetSeries(); err != nil {
		log.Printf("load persisted series: %v", err)
	} else if len(records) > 0 {
		c.Seed(records, computedAt)
		log.Printf("seeded cache with %d days computed %s", len(records), computedAt.Format(time.RFC3339))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(c, cli.Port)
	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
