// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"crowdwatch/internal/config"
	"crowdwatch/internal/domain/crowd"
	"crowdwatch/internal/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	analyzer crowd.Analyzer,
	scheduler crowd.Scheduler,
	verdicts handlers.VerdictReader,
	natsConn *nats.Conn,
	eventsTopic string,
	defaultInterval time.Duration,
	logger zerolog.Logger,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	crowdHandler := handlers.NewCrowdHandler(analyzer, verdicts, logger)
	schedulerHandler := handlers.NewSchedulerHandler(scheduler, defaultInterval, logger)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Crowd analysis API
			r.Route("/crowd", func(r chi.Router) {
				r.Get("/analysis", crowdHandler.GetAnalysis)
				r.Get("/analysis/{location}", crowdHandler.GetAnalysis)
				r.Get("/latest", crowdHandler.GetLatest)
				r.Get("/latest/{location}", crowdHandler.GetLatestByLocation)
			})

			// Scheduler API
			r.Route("/scheduler", func(r chi.Router) {
				r.Get("/status", schedulerHandler.GetStatus)
				r.Post("/start", schedulerHandler.Start)
				r.Post("/stop", schedulerHandler.Stop)
				r.Post("/update", schedulerHandler.Update)
			})
		})
	})

	// WebSocket endpoint for live crowd updates
	router.Get("/ws/crowd", handlers.CrowdWebSocketHandler(natsConn, eventsTopic, logger))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
