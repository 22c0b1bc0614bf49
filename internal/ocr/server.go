package ocr

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Server handles HTTP requests for recognition
type Server struct {
	service    *Service
	gate       *Gate
	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, gate *Gate, addr string) *Server {
	return NewServerWithMux(service, gate, addr, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, gate *Gate, addr string, mux *http.ServeMux) *Server {
	s := &Server{
		service: service,
		gate:    gate,
		mux:     mux,
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
	s.registerRoutes()
	return s
}

// requestLog tags each request with an id and logs its arrival
func (s *Server) requestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Handling request",
			"id", uuid.NewString(), "method", r.Method, "path", r.URL.Path)
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.requestLog(s.handleHealth))
	s.mux.HandleFunc("GET /memory", s.requestLog(s.handleMemory))
	s.mux.HandleFunc("POST /ocr/batch", s.requestLog(s.handleBatch))
	s.mux.HandleFunc("POST /ocr/single", s.requestLog(s.handleSingle))
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	slog.Info("Starting server", "address", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, letting in-flight requests finish
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
