// Package api exposes the triage service over HTTP: submission analysis for
// patients and review surfaces (history, notifications, analytics) for
// clinicians.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mindsignal/triage/internal/analyzer"
	"github.com/mindsignal/triage/internal/events"
	"github.com/mindsignal/triage/internal/notify"
	"github.com/mindsignal/triage/internal/store"
)

// Store is the persistence surface the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, u store.User) error
	GetUser(ctx context.Context, id string) (store.User, error)
	EnsureUser(ctx context.Context, id string) (store.User, error)
	ListUserSummaries(ctx context.Context) ([]store.UserSummary, error)
	WriteAnalysis(ctx context.Context, a store.Analysis) (uuid.UUID, error)
	HistoryByUser(ctx context.Context, userID string) ([]store.Analysis, error)
	RedCases(ctx context.Context) ([]store.RedCase, error)
	CreateNotification(ctx context.Context, n store.Notification) (uuid.UUID, error)
	UnreadNotifications(ctx context.Context) ([]store.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	RiskDistribution(ctx context.Context) ([]store.RiskBucket, error)
	ScoreTrend(ctx context.Context, days int) ([]store.TrendPoint, error)
}

// Classifier is the analysis surface the handlers need.
type Classifier interface {
	AnalyzeText(ctx context.Context, message string) analyzer.Result
	AnalyzeImage(ctx context.Context, data []byte) analyzer.Result
	Ready() bool
}

// Deps bundles the collaborators the server is wired with. Slack and Events
// may be nil; the corresponding side effects are skipped.
type Deps struct {
	Store      Store
	Classifier Classifier
	Slack      *notify.Poster
	Events     *events.Publisher
	JWTSecret  []byte
	TokenTTL   time.Duration
	Logger     *slog.Logger
}

type Server struct {
	router     *chi.Mux
	port       int
	store      Store
	classifier Classifier
	slack      *notify.Poster
	events     *events.Publisher
	jwtSecret  []byte
	tokenTTL   time.Duration
	logger     *slog.Logger
}

func NewServer(port int, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:     router,
		port:       port,
		store:      deps.Store,
		classifier: deps.Classifier,
		slack:      deps.Slack,
		events:     deps.Events,
		jwtSecret:  deps.JWTSecret,
		tokenTTL:   deps.TokenTTL,
		logger:     deps.Logger,
	}

	router.Get("/api/health", s.health)
	router.Post("/api/register", s.register)
	router.Post("/api/login", s.login)

	// Analysis endpoints accept anonymous submissions; a valid token binds
	// the result to the authenticated user instead.
	router.Post("/api/analyze", s.analyze)
	router.Post("/api/analyze-image", s.analyzeImage)

	router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/patients", s.listPatients)
		r.Post("/api/patients", s.createPatient)
		r.Get("/api/history/{userID}", s.history)
		r.Get("/api/notifications", s.notifications)
		r.Post("/api/notifications/{id}/read", s.markNotificationRead)
		r.Get("/api/analytics", s.analytics)
		r.Get("/api/export/red-cases", s.redCases)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if err := s.store.Ping(r.Context()); err != nil {
		dbStatus = "unreachable"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"ai_ready": s.classifier.Ready(),
		"db":       dbStatus,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
