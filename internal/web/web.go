package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"termcal/internal/agenda"
	"termcal/internal/calendar"
	"termcal/internal/config"
	appLog "termcal/internal/log"
	"termcal/internal/model"
)

const agendaCacheTTL = 30 * time.Second

// Server exposes a read-only view of the agenda over HTTP.
type Server struct {
	cfg    *config.Config
	ag     *agenda.Agenda
	logger *appLog.Logger
	mux    *http.ServeMux

	registry *prometheus.Registry
	requests *prometheus.CounterVec

	// Responses are cached per day until the TTL passes or the agenda
	// reloads.
	cacheMu sync.RWMutex
	cache   map[model.Date]agendaCache
}

type agendaCache struct {
	resp      agendaResponse
	reload    time.Time
	updatedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, ag *agenda.Agenda, logger *appLog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		ag:       ag,
		logger:   logger.With("component", "web"),
		mux:      http.NewServeMux(),
		registry: prometheus.NewRegistry(),
		cache:    make(map[model.Date]agendaCache),
	}
	s.registerMetrics()
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		s.logger.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="termcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, cfg *config.Config, ag *agenda.Agenda, logger *appLog.Logger) error {
	s := NewServer(cfg, ag, logger)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web: listen %s: %w", cfg.Listen, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/agenda", s.handleAgenda)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

func (s *Server) registerMetrics() {
	gauge := func(name, help string, value func(agenda.Stats) float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "termcal",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(s.ag.Stats()) })
	}

	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "termcal",
		Name:      "agenda_requests_total",
		Help:      "Agenda API requests by cache result.",
	}, []string{"cache"})

	s.registry.MustRegister(
		s.requests,
		gauge("events", "Local events.", func(st agenda.Stats) float64 { return float64(st.Events) }),
		gauge("tasks", "Local tasks.", func(st agenda.Stats) float64 { return float64(st.Tasks) }),
		gauge("remote_tasks", "Tasks mirrored from the remote database.", func(st agenda.Stats) float64 { return float64(st.RemoteTasks) }),
		gauge("imported_events", "Events from calendars, holidays and birthdays.", func(st agenda.Stats) float64 { return float64(st.ImportedEvents) }),
		gauge("imported_tasks", "Tasks from calendars.", func(st agenda.Stats) float64 { return float64(st.ImportedTasks) }),
		gauge("tombstones", "Remote tasks deleted this session.", func(st agenda.Stats) float64 { return float64(st.Tombstones) }),
		gauge("last_reload_timestamp_seconds", "Unix time of the last reload.", func(st agenda.Stats) float64 {
			if st.LastReload.IsZero() {
				return 0
			}
			return float64(st.LastReload.Unix())
		}),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// agendaResponse is the JSON response shape for /api/agenda.
type agendaResponse struct {
	Date      string     `json:"date"`
	Calendar  string     `json:"calendar"`
	Events    []eventDTO `json:"events"`
	Deadlines []taskDTO  `json:"deadlines"`
}

type eventDTO struct {
	Name   string `json:"name"`
	AllDay bool   `json:"all_day"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Status string `json:"status"`
	Source string `json:"source"`
}

type taskDTO struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Source string `json:"source"`
}

// handleAgenda returns the events and deadlines of one day.
//
// GET /api/agenda?date=YYYY-MM-DD
//   - date: a day in the configured display calendar, default today
//
// Private items are listed with their name masked.
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sys := s.ag.System()
	day := s.ag.Today(time.Now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, ok := parseDate(raw, sys)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		day = d
	}

	reload := s.ag.Stats().LastReload
	now := time.Now()

	s.cacheMu.RLock()
	ac, ok := s.cache[day]
	s.cacheMu.RUnlock()
	if ok && ac.reload.Equal(reload) && now.Sub(ac.updatedAt) < agendaCacheTTL {
		s.requests.WithLabelValues("hit").Inc()
		writeJSON(w, http.StatusOK, ac.resp)
		return
	}
	s.requests.WithLabelValues("miss").Inc()

	resp := agendaResponse{
		Date:      day.String(),
		Calendar:  sys.Name(),
		Events:    []eventDTO{},
		Deadlines: []taskDTO{},
	}
	for _, ev := range s.ag.EventsOn(day) {
		dto := eventDTO{
			Name:   publicName(&ev.Item),
			AllDay: ev.AllDay(),
			Status: ev.Status.String(),
			Source: sourceOf(ev.Origin),
		}
		if ev.Start != nil {
			dto.Start = formatClock(*ev.Start)
		}
		if ev.End != nil {
			dto.End = formatClock(*ev.End)
		}
		resp.Events = append(resp.Events, dto)
	}
	for _, t := range s.ag.Deadlines(day) {
		resp.Deadlines = append(resp.Deadlines, taskDTO{
			Name:   publicName(&t.Item),
			Status: t.Status.String(),
			Source: sourceOf(t.Origin),
		})
	}

	s.logger.Debug("api agenda request", "date", resp.Date, "events", len(resp.Events), "deadlines", len(resp.Deadlines))

	s.cacheMu.Lock()
	s.cache[day] = agendaCache{resp: resp, reload: reload, updatedAt: now}
	s.cacheMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func publicName(it *model.Item) string {
	if it.Private {
		return "(private)"
	}
	return it.Name
}

func sourceOf(o model.Origin) string {
	switch v := o.(type) {
	case *model.RemoteOrigin:
		return "remote"
	case model.CalendarOrigin:
		switch v.Source {
		case model.SourceHolidays:
			return "holiday"
		case model.SourceBirthdays:
			return "birthday"
		default:
			return "calendar"
		}
	default:
		return "local"
	}
}

func formatClock(c model.Clock) string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func parseDate(s string, sys calendar.System) (model.Date, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return model.Date{}, false
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return model.Date{}, false
		}
		n[i] = v
	}
	d := model.NewDate(n[0], n[1], n[2])
	return d, sys.Valid(d)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
