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

	"narratrack/internal/config"
	"narratrack/internal/domain/narrative"
	"narratrack/internal/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	eventsTopic string,
	natsConn *nats.Conn,
	tracker narrative.Tracker,
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
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	narrativeHandler := handlers.NewNarrativeHandler(tracker)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Ingest API
			r.Post("/occurrences", narrativeHandler.TrackOccurrence)

			// Narratives API
			r.Route("/narratives", func(r chi.Router) {
				r.Get("/", narrativeHandler.GetActiveNarratives)
				r.Get("/emerging", narrativeHandler.GetEmergingNarratives)
				r.Get("/by-name", narrativeHandler.GetNarrativeByName)
				r.Get("/compare", narrativeHandler.CompareNarratives)
				r.Get("/{id}", narrativeHandler.GetNarrative)
				r.Get("/{id}/mutations", narrativeHandler.GetMutations)
				r.Get("/{id}/spread", narrativeHandler.GetSpread)
				r.Get("/{id}/timeline", narrativeHandler.GetTimeline)
			})

			// Stats API
			r.Get("/stats", narrativeHandler.GetStats)
		})
	})

	// WebSocket endpoint for the live narrative event feed
	if natsConn != nil {
		router.Get("/ws/narratives", handlers.NarrativeStreamHandler(natsConn, eventsTopic))
	}

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
