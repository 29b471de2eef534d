package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/dashboard"
	"github.com/TobiSchelling/SocialPulse/internal/database"
	"github.com/TobiSchelling/SocialPulse/internal/logging"
	"github.com/TobiSchelling/SocialPulse/internal/metrics"
	"github.com/TobiSchelling/SocialPulse/internal/rollup"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Server serves the dashboard API and the stored weekly reports.
type Server struct {
	db      *database.DB
	service *dashboard.Service
	metrics *metrics.Collector
	log     logrus.FieldLogger
	pages   map[string]*template.Template
	mux     *http.ServeMux
}

// New creates a new Server. m may be nil, in which case /metrics is not
// served.
func New(db *database.DB, service *dashboard.Service, m *metrics.Collector, log logrus.FieldLogger) (*Server, error) {
	if log == nil {
		log = logging.Discard()
	}
	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatWeek": formatWeek,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "report.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, service: service, metrics: m, log: log, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handle(pattern, route string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.metrics.Middleware(route, h))
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// API
	s.handle("GET /api/lifetime", "/api/lifetime", s.handleLifetime)
	s.handle("GET /api/weekly", "/api/weekly", s.handleWeekly)
	s.handle("GET /api/live", "/api/live", s.handleLive)
	s.handle("GET /api/shows", "/api/shows", s.handleShows)
	s.handle("GET /api/shows/{id}", "/api/shows/{id}", s.handleShowDetail)
	s.handle("GET /api/talent", "/api/talent", s.handleTalent)
	s.handle("GET /api/talent/{id}", "/api/talent/{id}", s.handleTalentDetail)
	s.handle("GET /api/anomalies", "/api/anomalies", s.handleAnomalies)

	// Pages
	s.handle("GET /{$}", "/", s.handleIndex)
	s.handle("GET /reports/{week}", "/reports/{week}", s.handleReport)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"
	switch {
	case errors.Is(err, rollup.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, errBadRequest):
		status, msg = http.StatusBadRequest, err.Error()
	default:
		s.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": msg})
}

var errBadRequest = errors.New("bad request")

// days reads the optional ?days= rollup period.
func days(r *http.Request) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: days must be a positive integer", errBadRequest)
	}
	return n, nil
}

func (s *Server) handleLifetime(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.Lifetime(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	week, err := s.service.ResolveWeek(r.URL.Query().Get("week"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	v, err := s.service.Weekly(r.Context(), week.Start)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	v, err := s.service.Live(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleShows(w http.ResponseWriter, r *http.Request) {
	n, err := days(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ov, err := s.service.Shows(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleShowDetail(w http.ResponseWriter, r *http.Request) {
	n, err := days(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.service.ShowDetail(r.Context(), r.PathValue("id"), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleTalent(w http.ResponseWriter, r *http.Request) {
	n, err := days(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ov, err := s.service.Talent(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleTalentDetail(w http.ResponseWriter, r *http.Request) {
	n, err := days(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.service.TalentDetail(r.Context(), r.PathValue("id"), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	flags, err := s.service.Anomalies(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, flags)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	reports, err := s.db.GetAllWeeklyReports()
	if err != nil {
		s.log.WithError(err).Error("listing reports")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, http.StatusOK, "index.html", map[string]any{
		"Reports": reports,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	weekStart := r.PathValue("week")
	report, err := s.db.GetWeeklyReport(weekStart)
	if err != nil {
		s.log.WithError(err).WithField("week", weekStart).Error("loading report")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if report == nil {
		status = http.StatusNotFound
	}
	s.render(w, status, "report.html", map[string]any{
		"Report":    report,
		"WeekStart": weekStart,
	})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.WithField("template", name).Error("template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.log.WithError(err).WithField("template", name).Error("rendering template")
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// formatWeek renders a week start date as its Monday..Sunday range.
func formatWeek(weekStart string) string {
	week, err := calendar.WeekOf(weekStart)
	if err != nil {
		return weekStart
	}
	return database.FormatPeriodDisplay(database.MakePeriodID(week.Start, week.End))
}

// ListenAndServe serves on the given port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", "http://"+addr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
