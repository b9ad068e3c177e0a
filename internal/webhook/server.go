// Package webhook exposes the chat-agent endpoints: user profile lookup
// and edits backed by a spreadsheet, and calendar event creation from
// free-text instructions.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"

	"github.com/agendabot/agendabot/internal/config"
	"github.com/agendabot/agendabot/internal/gsheets"
	"github.com/agendabot/agendabot/internal/schedule"
)

// SheetsService is the spreadsheet collaborator the handlers depend on.
type SheetsService interface {
	FindUserByPhone(ctx context.Context, spreadsheetID, sheetName, phone string) (*gsheets.Row, error)
	UpdateUserByPhone(ctx context.Context, spreadsheetID, sheetName, phone string, updates map[string]string) (int, error)
}

// CalendarService is the calendar collaborator the handlers depend on.
type CalendarService interface {
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	ListUpcomingEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error)
}

// Server wires the webhook handlers to their collaborators.
type Server struct {
	cfg      *config.Config
	log      *logrus.Logger
	sheets   SheetsService
	calendar CalendarService
	loc      *time.Location

	// now is the clock, injectable in tests.
	now func() time.Time
}

// NewServer creates a Server. An unknown configured timezone degrades
// to the parser default rather than failing startup.
func NewServer(cfg *config.Config, log *logrus.Logger, sheets SheetsService, calendar CalendarService) *Server {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.WithField("timezone", cfg.Timezone).Warn("unknown timezone, using the default")
		loc, err = time.LoadLocation(schedule.DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}

	return &Server{
		cfg:      cfg,
		log:      log,
		sheets:   sheets,
		calendar: calendar,
		loc:      loc,
		now:      time.Now,
	}
}

// Router assembles the chi router with the middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/webhook", func(r chi.Router) {
		r.Use(httprate.LimitByIP(60, time.Minute))
		r.Use(s.requireToken)

		r.Post("/profile", s.handleProfile)
		r.Post("/editor", s.handleEditor)
		r.Post("/agenda", s.handleAgenda)
		r.Get("/agenda.ics", s.handleAgendaICS)
	})

	return r
}

var bearerPrefix = regexp.MustCompile(`(?i)^Bearer\s+`)

// requireToken rejects requests whose Authorization bearer token does
// not match the configured webhook token. With no token configured the
// check is skipped.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.WebhookToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		got := bearerPrefix.ReplaceAllString(r.Header.Get("Authorization"), "")
		if got != s.cfg.WebhookToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with method, path, status and
// duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request handled")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// writeReply serializes a chat-platform reply.
func (s *Server) writeReply(w http.ResponseWriter, status int, reply Reply) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		s.log.WithError(err).Error("failed to encode reply")
	}
}
