// Package server exposes the comparison engine over HTTP: holiday
// lookups, ad-hoc ICS diffs and change-calendar history diffs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robfig/cron/v3"

	"github.com/koyomi-dev/koyomi/internal/awscal"
	"github.com/koyomi-dev/koyomi/internal/diff"
	"github.com/koyomi-dev/koyomi/internal/holiday"
	"github.com/koyomi-dev/koyomi/internal/ics"
	"github.com/koyomi-dev/koyomi/internal/logging"
	"github.com/koyomi-dev/koyomi/internal/report"
	"github.com/koyomi-dev/koyomi/internal/store"
)

// Remote fetches change calendars. *awscal.Client satisfies it; tests
// plug in a stub.
type Remote interface {
	GetCalendar(ctx context.Context, name string) (*awscal.Calendar, error)
	State(ctx context.Context, name string) (string, error)
}

// Server is the HTTP API surface.
type Server struct {
	cfg       Config
	router    chi.Router
	logger    logging.Logger
	holidays  *holiday.Provider
	remote    Remote
	snapshots *store.Store
	cron      *cron.Cron
}

// New wires a Server from its collaborators. remote and snapshots may be
// nil, in which case the calendar endpoints report 503.
func New(cfg Config, holidays *holiday.Provider, remote Remote, snapshots *store.Store) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("server")
	}
	s := &Server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		logger:    logger,
		holidays:  holidays,
		remote:    remote,
		snapshots: snapshots,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/holidays", s.handleHolidays)
	r.Post("/api/compare", s.handleCompare)
	r.Get("/api/calendars/{name}", s.handleGetCalendar)
	r.Get("/api/calendars/{name}/state", s.handleCalendarState)
	r.Post("/api/calendars/{name}/diff", s.handleCalendarDiff)
	r.Get("/api/calendars/{name}/snapshots", s.handleListSnapshots)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("http_request",
		logging.Field{Key: "method", Value: r.Method},
		logging.Field{Key: "path", Value: r.URL.Path})
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Start launches the background holiday refresh job.
func (s *Server) Start() error {
	if s.cfg.RefreshSchedule == "" || s.holidays == nil {
		return nil
	}
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cfg.RefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.holidays.Refresh(ctx); err != nil {
			s.logger.Warn("holiday refresh failed", logging.Field{Key: "error", Value: err.Error()})
			return
		}
		s.logger.Info("holiday data refreshed")
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Close stops the refresh job and the snapshot store.
func (s *Server) Close() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.snapshots != nil {
		s.snapshots.Close()
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	if s.holidays == nil {
		writeError(w, http.StatusServiceUnavailable, "holiday provider not configured")
		return
	}
	var all []holiday.Holiday
	var err error
	if q := r.URL.Query().Get("year"); q != "" {
		year, convErr := strconv.Atoi(q)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		all, err = s.holidays.Range(r.Context(),
			time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC))
	} else {
		all, err = s.holidays.All(r.Context())
	}
	if err != nil {
		s.logger.Warn("loading holidays", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	type holidayJSON struct {
		Date string `json:"date"`
		Name string `json:"name"`
	}
	out := make([]holidayJSON, 0, len(all))
	for _, h := range all {
		out = append(out, holidayJSON{Date: h.Date.Format("2006-01-02"), Name: h.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

type comparePayload struct {
	Old calendarPayload `json:"old"`
	New calendarPayload `json:"new"`
}

type calendarPayload struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var body comparePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Old.Content == "" || body.New.Content == "" {
		writeError(w, http.StatusBadRequest, "old.content and new.content are required")
		return
	}
	if body.Old.Name == "" {
		body.Old.Name = "old"
	}
	if body.New.Name == "" {
		body.New.Name = "new"
	}

	// Parse already names the defective file in its error.
	oldSet, oldDiags, err := ics.Parse(body.Old.Name, strings.NewReader(body.Old.Content))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	newSet, newDiags, err := ics.Parse(body.New.Name, strings.NewReader(body.New.Content))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.writeDiff(w, diff.Compare(oldSet, newSet), oldDiags, newDiags)
}

// writeDiff renders a diff result through the JSON formatter, which
// carries full event identity, and wraps it with parse diagnostics.
func (s *Server) writeDiff(w http.ResponseWriter, res diff.Result, oldDiags, newDiags []ics.Diagnostic) {
	rendered, err := report.Format(res, report.Options{Style: report.StyleJSON})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result":          json.RawMessage(rendered),
		"old_diagnostics": diagStrings(oldDiags),
		"new_diagnostics": diagStrings(newDiags),
	})
}

func (s *Server) handleGetCalendar(w http.ResponseWriter, r *http.Request) {
	if s.remote == nil {
		writeError(w, http.StatusServiceUnavailable, "AWS client not configured")
		return
	}
	name := chi.URLParam(r, "name")
	cal, err := s.remote.GetCalendar(r.Context(), name)
	if err != nil {
		s.remoteError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    cal.Name,
		"state":   cal.State,
		"version": cal.Version,
		"content": cal.Content,
	})
}

func (s *Server) handleCalendarState(w http.ResponseWriter, r *http.Request) {
	if s.remote == nil {
		writeError(w, http.StatusServiceUnavailable, "AWS client not configured")
		return
	}
	name := chi.URLParam(r, "name")
	state, err := s.remote.State(r.Context(), name)
	if err != nil {
		s.remoteError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "state": state})
}

// handleCalendarDiff fetches the calendar, records a snapshot and diffs
// it against the previously recorded one.
func (s *Server) handleCalendarDiff(w http.ResponseWriter, r *http.Request) {
	if s.remote == nil || s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "AWS client or snapshot store not configured")
		return
	}
	name := chi.URLParam(r, "name")
	cal, err := s.remote.GetCalendar(r.Context(), name)
	if err != nil {
		s.remoteError(w, name, err)
		return
	}

	newSet, newDiags, err := ics.Parse(name, strings.NewReader(cal.Content))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	prev, err := s.snapshots.Latest(r.Context(), name)
	if err != nil && !errors.Is(err, store.ErrNoSnapshot) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := s.snapshots.Record(r.Context(), name, cal.Content, cal.State, newSet.Len()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if prev == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"first_snapshot":  true,
			"events":          newSet.Len(),
			"new_diagnostics": diagStrings(newDiags),
		})
		return
	}

	oldSet, oldDiags, err := ics.Parse(name+"@"+prev.FetchedAt.Format(time.RFC3339), strings.NewReader(prev.Content))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "previous snapshot: "+err.Error())
		return
	}

	s.writeDiff(w, diff.Compare(oldSet, newSet), oldDiags, newDiags)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}
	name := chi.URLParam(r, "name")
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	snaps, err := s.snapshots.List(r.Context(), name, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type snapJSON struct {
		ID         string `json:"id"`
		State      string `json:"state"`
		EventCount int    `json:"event_count"`
		FetchedAt  string `json:"fetched_at"`
	}
	out := make([]snapJSON, 0, len(snaps))
	for _, sn := range snaps {
		out = append(out, snapJSON{
			ID:         sn.ID,
			State:      sn.State,
			EventCount: sn.EventCount,
			FetchedAt:  sn.FetchedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) remoteError(w http.ResponseWriter, name string, err error) {
	s.logger.Warn("remote calendar", logging.Field{Key: "calendar", Value: name}, logging.Field{Key: "error", Value: err.Error()})
	if errors.Is(err, awscal.ErrCalendarNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

func diagStrings(diags []ics.Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.String())
	}
	return out
}
