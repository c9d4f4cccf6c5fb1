package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/devduo/studio-backend/auth"
	"github.com/devduo/studio-backend/config"
	"github.com/devduo/studio-backend/kvstore"
	"github.com/devduo/studio-backend/metrics"
	"github.com/devduo/studio-backend/services"
	"github.com/devduo/studio-backend/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Dependencies are the components the HTTP surface is built on. Uploader, Metrics, Gatherer and
// Alerts are optional.
type Dependencies struct {
	Store    *store.Store
	Verifier auth.Verifier
	Tokens   *auth.Tokens
	Local    kvstore.Store
	Uploader *services.ImageUploader
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Alerts   services.Notifier
}

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(deps Dependencies, c map[string]string) (Server, error) {
	if deps.Store == nil || deps.Verifier == nil || deps.Tokens == nil || deps.Local == nil {
		return Server{}, fmt.Errorf("api: store, verifier, tokens and local store are required")
	}

	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port)

	startupTime := time.Now()

	router := newRouter(deps, withConfig(c), withStartupTime(startupTime))

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  config.GetSeconds(c, "READ_TIMEOUT_SECONDS", 180),
		WriteTimeout: config.GetSeconds(c, "WRITE_TIMEOUT_SECONDS", 180),
		IdleTimeout:  config.GetSeconds(c, "IDLE_TIMEOUT_SECONDS", 180),
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config      map[string]string
	startupTime time.Time
}

func withConfig(c map[string]string) func(*router) {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func newRouter(deps Dependencies, opts ...func(*router)) *chi.Mux {
	router := router{startupTime: time.Now()}
	for _, opt := range opts {
		opt(&router)
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.RealIP)
	chiRouter.Use(LogInternalServerErrors)

	var statuses statusRecorder
	if deps.Metrics != nil {
		statuses = deps.Metrics
	}
	chiRouter.Use(HTTPLoggingMiddleware(log.With().Str("component", "http").Logger(), statuses))

	acceptedOrigins := config.GetList(router.config, "ACCEPTED_ORIGINS")
	chiRouter.Use(CORSCheckMiddleware(acceptedOrigins))
	chiRouter.Use(corsMiddleware(acceptedOrigins))

	handlers := initializeHandlers(deps, router.config, router.startupTime)
	authMiddleware := newAuthMiddleware(deps.Tokens)
	limiter := newLoginLimiter(config.GetInt(router.config, "LOGIN_RATE_PER_MINUTE", 10))

	var metricsHandler http.Handler
	if deps.Gatherer != nil {
		metricsHandler = metrics.Handler(deps.Gatherer)
	}

	setupPublicRoutes(chiRouter, handlers, metricsHandler)
	setupFrontendRoutes(chiRouter, handlers, authMiddleware, limiter)

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
