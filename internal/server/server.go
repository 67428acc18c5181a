package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mythos/internal/config"
	"mythos/internal/core"
	"mythos/internal/logger"
	"mythos/internal/metrics"
	"mythos/internal/services"
)

const defaultRequestTimeout = 60 * time.Second

// StoryStore is the persistence the HTTP surface needs for story context.
type StoryStore interface {
	Ping(ctx context.Context) error
	CreateStory(ctx context.Context, title, content, genre string) (*core.Story, error)
	GetStory(ctx context.Context, id string) (*core.Story, error)
	StoryContext(ctx context.Context, storyID string) (core.StoryContext, error)
	SaveCharacter(ctx context.Context, storyID string, c core.Character) (string, error)
	SavePlot(ctx context.Context, storyID string, p core.Plot) (string, error)
	SaveTwist(ctx context.Context, storyID string, t core.PlotTwist) (string, error)
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	gen        services.StoryGenerator
	store      StoryStore
	config     config.Server
	log        zerolog.Logger
	validate   *validator.Validate
	metrics    *metrics.Recorder
	gatherer   prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records HTTP metrics into rec and serves gatherer on /metrics.
func WithMetrics(rec *metrics.Recorder, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = rec
		s.gatherer = gatherer
	}
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a new HTTP server instance
func New(gen services.StoryGenerator, store StoryStore, cfg config.Server, opts ...Option) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	s := &Server{
		router:   chi.NewRouter(),
		gen:      gen,
		store:    store,
		config:   cfg,
		log:      logger.For("server"),
		validate: v,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Setup middleware
	s.setupMiddleware()

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	// Request ID middleware
	s.router.Use(middleware.RequestID)

	// Real IP middleware
	s.router.Use(middleware.RealIP)

	// Logging and metrics middleware
	s.router.Use(s.observe)

	// Recovery middleware (recover from panics)
	s.router.Use(middleware.Recoverer)

	// Request timeout middleware; generation can sit in backoff for a while
	timeout := s.config.WriteTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	s.router.Use(middleware.Timeout(timeout))

	// CORS middleware
	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300, // Maximum value not ignored by any major browsers
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	// Liveness check endpoint
	s.router.Get("/health", s.handleHealth)

	if s.gatherer != nil {
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api", func(r chi.Router) {
		// Generation API
		r.Route("/ai", func(r chi.Router) {
			r.Get("/health", s.handleAIHealth)
			r.Post("/continue-story", s.handleContinueStory)
			r.Post("/story-suggestions", s.handleStorySuggestions)
			r.Post("/develop-character", s.handleDevelopCharacter)
			r.Post("/plot-twist", s.handlePlotTwist)
			r.Post("/writing-assistant", s.handleWritingAssistant)
			r.Post("/analyze-story", s.handleAnalyzeStory)
			r.Post("/writing-prompts", s.handleWritingPrompts)
			r.Post("/generate-character-from-story", s.handleCharacterFromStory)
			r.Post("/generate-plot-from-story", s.handlePlotFromStory)
		})

		// Stories API
		r.Route("/stories", func(r chi.Router) {
			r.Post("/", s.handleCreateStory)
			r.Get("/{id}", s.handleGetStory)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Dur("read_timeout", s.config.ReadTimeout).
		Dur("write_timeout", s.config.WriteTimeout).
		Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info().Msg("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
