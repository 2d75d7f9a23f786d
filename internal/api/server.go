package api

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ua-snap/swti/internal/cache"
	"github.com/ua-snap/swti/internal/chart"
	"github.com/ua-snap/swti/internal/index"
	"github.com/ua-snap/swti/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

const downloadPath = "/downloads/statewide_temperature_daily_index.csv"

type Server struct {
	cache *cache.Cache
	port  string
	tmpl  *template.Template
}

func NewServer(c *cache.Cache, port string) *Server {
	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
	return &Server{
		cache: c,
		port:  port,
		tmpl:  tmpl,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/index", s.handleAPIIndex)
	mux.HandleFunc(downloadPath, s.handleDownloadCSV)
	mux.HandleFunc("/chart.png", s.handleChart)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type IndexPage struct {
	Records      []models.DailyIndexRecord
	ComputedAt   time.Time
	Stale        bool
	DownloadPath string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	res, err := s.cache.Get(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	page := IndexPage{
		Records:      res.Records,
		ComputedAt:   res.ComputedAt,
		Stale:        res.Stale,
		DownloadPath: downloadPath,
	}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", page); err != nil {
		log.Printf("api: template error: %v", err)
	}
}

// IndexResponse carries the series plus enough freshness information for
// a presentation layer to distinguish "no data yet" from "showing
// possibly-stale data".
type IndexResponse struct {
	ComputedAt time.Time                 `json:"computed_at"`
	Stale      bool                      `json:"stale"`
	Records    []models.DailyIndexRecord `json:"records"`
}

func (s *Server) handleAPIIndex(w http.ResponseWriter, r *http.Request) {
	res, err := s.cache.Get(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(IndexResponse{
		ComputedAt: res.ComputedAt,
		Stale:      res.Stale,
		Records:    res.Records,
	})
}

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	res, err := s.cache.Get(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="statewide_temperature_daily_index.csv"`)
	fmt.Fprintln(w, "date,daily_index")
	for _, rec := range res.Records {
		fmt.Fprintf(w, "%s,%.*f\n", rec.Date.Format("2006-01-02"), index.IndexPrecision, rec.Index)
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	res, err := s.cache.Get(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	data, err := chart.Render(res.Records)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

type HealthStatus struct {
	Status     string    `json:"status"`
	ComputedAt time.Time `json:"computed_at,omitempty"`
	AgeSeconds int       `json:"age_seconds,omitempty"`
	Stale      bool      `json:"stale"`
	Days       int       `json:"days"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	res, err := s.cache.Get(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
		return
	}

	health := HealthStatus{
		Status:     "ok",
		ComputedAt: res.ComputedAt,
		AgeSeconds: int(time.Since(res.ComputedAt).Seconds()),
		Stale:      res.Stale,
		Days:       len(res.Records),
	}
	if res.Stale {
		health.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		log.Printf("api: health: write response: %v", err)
	}
}
