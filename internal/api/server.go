package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/elec-mate/elecmate-engine/internal/assessment"
	"github.com/elec-mate/elecmate-engine/internal/config"
	"github.com/elec-mate/elecmate-engine/internal/documents"
	"github.com/elec-mate/elecmate-engine/internal/generator"
	"github.com/elec-mate/elecmate-engine/internal/metrics"
	"github.com/elec-mate/elecmate-engine/internal/models"
	"github.com/elec-mate/elecmate-engine/internal/notifications"
	"github.com/elec-mate/elecmate-engine/internal/questions"
	"github.com/elec-mate/elecmate-engine/internal/services"
	"github.com/elec-mate/elecmate-engine/internal/storage"
)

// Deps are the services the API is built on. Metrics may be nil; a nil
// Health registry checks only the repository.
type Deps struct {
	Documents     *documents.Service
	Generator     *generator.Manager
	Exams         *assessment.Manager
	Banks         *questions.Registry
	Notifications *notifications.Service
	Repo          storage.Repository
	Health        *services.Registry
	Metrics       *metrics.Collector
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	documents      *documents.Service
	generator      *generator.Manager
	exams          *assessment.Manager
	banks          *questions.Registry
	notifications  *notifications.Service
	repo           storage.Repository
	health         *services.Registry
	metrics        *metrics.Collector
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	health := deps.Health
	if health == nil {
		health = services.NewRegistry()
		health.Register("storage", services.NewCheckFunc("storage", deps.Repo.Ping))
	}

	s := &Server{
		config:         cfg,
		documents:      deps.Documents,
		generator:      deps.Generator,
		exams:          deps.Exams,
		banks:          deps.Banks,
		notifications:  deps.Notifications,
		repo:           deps.Repo,
		health:         health,
		metrics:        deps.Metrics,
		authMiddleware: NewAuthMiddleware(deps.Repo),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)
		can := s.authMiddleware.RequirePermission

		// Websocket upgrades must not sit behind the timeout middleware
		r.With(can(models.PermExamsRead)).Get("/exam-sessions/{id}/ws", s.handleExamStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/templates", func(r chi.Router) {
				r.Use(can(models.PermTemplatesRead))
				r.Get("/", s.handleListTemplates)
				r.Get("/categories", s.handleListCategories)
				r.Get("/{id}", s.handleGetTemplate)
				r.Get("/{id}/download", s.handleDownloadTemplate)
			})

			r.Route("/generator/sessions", func(r chi.Router) {
				r.With(can(models.PermDocumentsWrite)).Post("/", s.handleCreateGeneratorSession)
				r.Route("/{id}", func(r chi.Router) {
					r.With(can(models.PermDocumentsRead)).Get("/", s.handleGetGeneratorSession)
					r.With(can(models.PermDocumentsWrite)).Delete("/", s.handleCloseGeneratorSession)
					r.With(can(models.PermDocumentsWrite)).Put("/fields/{name}", s.handleSetGeneratorField)
					r.With(can(models.PermDocumentsWrite)).Post("/generate", s.handleGenerateDocument)
					r.With(can(models.PermDocumentsWrite)).Delete("/notice", s.handleDismissNotice)
				})
			})

			r.Route("/documents", func(r chi.Router) {
				r.Use(can(models.PermDocumentsRead))
				r.Get("/", s.handleListDocuments)
				r.Get("/{id}", s.handleGetDocument)
				r.Get("/{id}/file", s.handleDownloadDocument)
			})

			r.Route("/exams", func(r chi.Router) {
				r.With(can(models.PermExamsRead)).Get("/", s.handleListExams)
				r.With(can(models.PermExamsRead)).Get("/{examId}/attempts", s.handleListAttempts)
				r.With(can(models.PermExamsWrite)).Post("/{examId}/sessions", s.handleStartExam)
			})

			r.Route("/exam-sessions/{id}", func(r chi.Router) {
				r.With(can(models.PermExamsRead)).Get("/", s.handleGetExamSession)
				r.With(can(models.PermExamsWrite)).Delete("/", s.handleDisposeExamSession)
				r.With(can(models.PermExamsRead)).Get("/breakdown", s.handleExamBreakdown)

				r.Group(func(r chi.Router) {
					r.Use(can(models.PermExamsWrite))
					r.Post("/answer", s.handleSelectAnswer)
					r.Post("/next", s.handleNextQuestion)
					r.Post("/previous", s.handlePreviousQuestion)
					r.Post("/goto", s.handleGoTo)
					r.Post("/flag", s.handleToggleFlag)
					r.Post("/next-flagged", s.handleNextFlagged)
					r.Post("/submit", s.handleSubmitExam)
					r.Post("/retake", s.handleRetakeExam)
					r.Post("/review", s.handleReview)
					r.Post("/review/filter", s.handleSelectReviewFilter)
					r.Delete("/review", s.handleExitReview)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.With(can(models.PermNotificationsRead)).Get("/", s.handleListNotifications)
				r.With(can(models.PermNotificationsWrite)).Post("/", s.handleCreateNotification)
				r.Route("/{id}", func(r chi.Router) {
					r.With(can(models.PermNotificationsRead)).Get("/", s.handleGetNotification)
					r.With(can(models.PermNotificationsWrite)).Patch("/", s.handleUpdateNotification)
					r.With(can(models.PermNotificationsWrite)).Delete("/", s.handleDeleteNotification)
				})
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// metricsMiddleware records request counts and latency by route pattern
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}
