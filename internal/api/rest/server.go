package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server
func NewServer(port string, handler *Handler) *Server {
	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Scraping (bearer token required)
	scrape := api.PathPrefix("/scrape").Subrouter()
	scrape.Use(BearerAuthMiddleware(handler.token))
	scrape.HandleFunc("", handler.HandleScrape).Methods("POST")

	// Queue state
	api.HandleFunc("/queue", handler.GetQueue).Methods("GET")

	// Teams
	api.HandleFunc("/teams", handler.GetTeams).Methods("GET")
	api.HandleFunc("/teams/{teamID}", handler.GetTeam).Methods("GET")
	api.HandleFunc("/teams/{teamID}/games", handler.GetTeamGames).Methods("GET")

	return &Server{
		port:    port,
		handler: handler,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: router,
		},
	}
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
