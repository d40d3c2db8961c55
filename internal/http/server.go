package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moodcal/internal/amqp"
	"moodcal/internal/cache"
	"moodcal/internal/calendar"
	"moodcal/internal/log"
	"moodcal/internal/metrics"
	"moodcal/internal/ports"
	"moodcal/internal/services"
	"moodcal/internal/stats"
)

// Deps are the collaborators the API is built on. Store, Moods and
// Cycles are required; the rest fall back to working defaults.
type Deps struct {
	Store     ports.Store
	Moods     *services.MoodService
	Cycles    *services.CycleService
	Stats     *stats.Service
	Projector *calendar.Projector
	// YearCache holds year projections. Nil means a 32 entry, 5 minute cache.
	YearCache cache.Cache[calendar.Projection]
	Observer  metrics.Observer
	Gatherer  prometheus.Gatherer
	Logger    *log.Logger
}

type Server struct {
	http.Server
	store       ports.Store
	moods       *services.MoodService
	cycles      *services.CycleService
	stats       *stats.Service
	projector   *calendar.Projector
	years       *cache.Loader[calendar.Projection]
	logger      *log.Logger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, d Deps) *Server {
	if d.Stats == nil {
		d.Stats = stats.NewService(d.Store)
	}
	if d.Projector == nil {
		d.Projector = calendar.NewProjector(d.Store)
	}
	if d.YearCache == nil {
		d.YearCache = cache.NewLRUCache[calendar.Projection](32, 5*time.Minute)
	}
	if d.Observer == nil {
		d.Observer = metrics.Nop{}
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.Logger == nil {
		d.Logger = log.New(log.ComponentHTTP, nil)
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:       d.Store,
		moods:       d.Moods,
		cycles:      d.Cycles,
		stats:       d.Stats,
		projector:   d.Projector,
		years:       cache.NewLoader(d.YearCache, d.Observer.RecordCacheLookup),
		logger:      d.Logger,
		rateLimiter: newRateLimiter(),
	}

	// Any committed write may change a year heatmap.
	s.moods.OnChange(s.purgeYears)
	if s.cycles.Notifier != s.moods.Notifier {
		s.cycles.OnChange(s.purgeYears)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.withMiddleware(h))
	}
	api("GET /api/persons", s.handleListPersons)
	api("POST /api/persons", s.handleCreatePerson)
	api("GET /api/persons/{id}", s.handleGetPerson)
	api("PUT /api/persons/{id}", s.handleUpdatePerson)
	api("DELETE /api/persons/{id}", s.handleDeletePerson)

	api("GET /api/entries/{date}/{person_id}", s.handleGetEntry)
	api("PUT /api/entries/{date}/{person_id}", s.handleSaveEntry)
	api("DELETE /api/entries/{date}/{person_id}", s.handleClearEntry)

	api("GET /api/calendar/navigate", s.handleNavigate)
	api("GET /api/calendar/{view}", s.handleCalendar)

	api("GET /api/cycles/presets", s.handlePresets)
	api("POST /api/cycles/apply", s.handleApplyCycle)

	api("GET /api/stats/moods", s.handleMoodStats)
	api("GET /api/stats/activity", s.handleActivity)

	api("GET /api/export.csv", s.handleExportCSV)

	return s
}

// withMiddleware stacks logging, request ids, security headers and
// write rate limiting around an API handler.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	h := s.withSecurityHeaders(next)
	h = log.RequestIDMiddleware(requestID)(h)
	h = withRequestID(h)
	return log.Middleware(s.logger)(h)
}

func (s *Server) purgeYears(msg *amqp.ChangeMessage) {
	s.years.Invalidate()
	s.logger.WithComponent(log.ComponentCache).Debug("Year cache purged",
		log.FieldMessageID, msg.ID)
}

// HandleChangeMessage purges cached projections for a write committed by
// another process sharing the store, such as moodctl.
func (s *Server) HandleChangeMessage(_ context.Context, msg *amqp.ChangeMessage) error {
	s.purgeYears(msg)
	return nil
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
