package gateway

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server represents the gateway HTTP server
type Server struct {
	router  *mux.Router
	handler *Handler
	verbose bool
}

// NewServer creates a new HTTP server
func NewServer(handler *Handler, verbose bool) *Server {
	server := &Server{
		router:  mux.NewRouter(),
		handler: handler,
		verbose: verbose,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/intents", s.handler.SubmitIntentHandler).Methods("POST")
	s.router.HandleFunc("/intents/{txn_id}", s.handler.GetIntentHandler).Methods("GET")
	s.router.HandleFunc("/intents/{txn_id}/pay", s.handler.PayHandler).Methods("POST")
	s.router.HandleFunc("/intents/{txn_id}/cancel", s.handler.CancelHandler).Methods("POST")
	s.router.HandleFunc("/results/{txn_id}", s.handler.CollectResultHandler).Methods("GET")
	s.router.HandleFunc("/health", s.handler.HealthHandler).Methods("GET")

	s.router.Use(s.loggingMiddleware)
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)

	if s.verbose {
		log.Printf("[SERVER] Starting UPI gateway on port %d", port)
		log.Printf("[SERVER] Available endpoints:")
		log.Printf("[SERVER]   POST /intents")
		log.Printf("[SERVER]   GET  /intents/{txn_id}")
		log.Printf("[SERVER]   POST /intents/{txn_id}/pay")
		log.Printf("[SERVER]   POST /intents/{txn_id}/cancel")
		log.Printf("[SERVER]   GET  /results/{txn_id}")
		log.Printf("[SERVER]   GET  /health")
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verbose {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Printf("[HTTP] %s %s - %v", r.Method, r.URL.Path, time.Since(start))
		} else {
			next.ServeHTTP(w, r)
		}
	})
}
